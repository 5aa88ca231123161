// Package collection owns the in-memory bibliography for a run: loading
// records from YAML or BibTeX files, deduplication, sort ordering, filtering,
// and the formatting helpers handed to templates.
package collection

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bibrender/src/internal/bibtex"
	"bibrender/src/internal/dates"
	"bibrender/src/internal/logger"
	"bibrender/src/internal/record"
)

// Collection is the ordered set of records for one run. Order is load order
// until Sort reorders it.
type Collection struct {
	records   []*record.Record
	processed map[string]int
}

// New returns an empty collection.
func New() *Collection {
	return &Collection{processed: map[string]int{}}
}

// Records returns the backing record sequence in current order.
func (c *Collection) Records() []*record.Record { return c.records }

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Load reads one bibliography file and appends its records, dispatching on
// the file extension (.yaml/.yml or .bib). When coerceYear is set, each
// record's year field is normalized to an int. Files load in call order;
// records keep source order within a file.
func (c *Collection) Load(path string, coerceYear bool) error {
	var recs []*record.Record
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		recs, err = loadYAML(path)
	case ".bib":
		recs, err = loadBib(path)
	default:
		return &UnsupportedFormatError{Path: path, Ext: ext}
	}
	if err != nil {
		return err
	}
	for _, r := range recs {
		applyDefaults(r)
		if coerceYear {
			if err := coerceYearField(path, r); err != nil {
				return err
			}
		}
		r.AssignID()
		c.records = append(c.records, r)
	}
	logger.Debugf("loaded %d records from %s", len(recs), path)
	return nil
}

// loadYAML reads every document in the file; each document is a sequence of
// record mappings, and all records flatten into one sequence.
func loadYAML(path string) ([]*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []*record.Record
	dec := yaml.NewDecoder(f)
	for {
		var doc []*record.Record
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, &LoadError{Path: path, Err: err}
		}
		out = append(out, doc...)
	}
}

// loadBib parses the file with the BibTeX collaborator. Entries lacking an
// explicit type field take the entry-type tag.
func loadBib(path string) ([]*record.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := bibtex.Parse(string(b))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	out := make([]*record.Record, 0, len(entries))
	for _, e := range entries {
		r := record.New()
		for _, name := range e.Names {
			r.Set(name, e.Fields[name])
		}
		if !r.Has("type") {
			r.Set("type", e.Type)
		}
		out = append(out, r)
	}
	return out, nil
}

// applyDefaults is the default-value injection hook run on every loaded
// record. It currently injects nothing.
func applyDefaults(_ *record.Record) {}

// coerceYearField converts the year field to int in place. A nil year is
// treated like an absent one. Unparseable values fail the load.
func coerceYearField(path string, r *record.Record) error {
	v, ok := r.Get("year")
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case int:
		return nil
	case int64:
		r.Set("year", int(t))
		return nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return &TypeCoercionError{Path: path, Field: "year", Value: v}
		}
		r.Set("year", n)
		return nil
	default:
		return &TypeCoercionError{Path: path, Field: "year", Value: v}
	}
}

// RemoveDuplicates drops records whose exact title was already seen,
// keeping the first occurrence and the relative order of the rest. Records
// with an empty or missing title are always kept. Each dropped record is
// reported field-by-field for audit.
func (c *Collection) RemoveDuplicates() {
	seen := map[string]bool{}
	kept := c.records[:0]
	for _, r := range c.records {
		title := r.String("title")
		if title != "" && seen[title] {
			auditDrop("duplicate title", r)
			continue
		}
		if title != "" {
			seen[title] = true
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(c.records); i++ {
		c.records[i] = nil
	}
	c.records = kept
}

// RemoveType permanently drops every record whose type equals typ, with the
// same audit diagnostic as duplicate removal.
func (c *Collection) RemoveType(typ string) {
	kept := c.records[:0]
	for _, r := range c.records {
		if r.String("type") == typ {
			auditDrop("type "+typ, r)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(c.records); i++ {
		c.records[i] = nil
	}
	c.records = kept
}

func auditDrop(reason string, r *record.Record) {
	var b strings.Builder
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	logger.Warnf("dropping record (%s):%s", reason, b.String())
}

// Sort keys substitute 2100 for a missing or non-numeric year and 12 for a
// missing or non-numeric month, so undated records sort as far future.
const (
	defaultSortYear  = 2100
	defaultSortMonth = 12
)

type sortKey struct {
	year  int
	month int
	title string
}

func keyOf(r *record.Record) sortKey {
	k := sortKey{year: defaultSortYear, month: defaultSortMonth, title: r.String("title")}
	if v, ok := r.Get("year"); ok {
		k.year = dates.ToInt(v, defaultSortYear)
	}
	mv, ok := r.Get("month4sort")
	if !ok {
		mv, ok = r.Get("month")
	}
	if ok {
		k.month = dates.ToInt(mv, defaultSortMonth)
	}
	return k
}

func (a sortKey) less(b sortKey) bool {
	if a.year != b.year {
		return a.year < b.year
	}
	if a.month != b.month {
		return a.month < b.month
	}
	return a.title < b.title
}

// Sort orders the collection by (year, month, title) ascending, stable with
// respect to the current order, then reverses the whole sequence when
// newestFirst is set.
func (c *Collection) Sort(newestFirst bool) {
	keys := make([]sortKey, len(c.records))
	for i, r := range c.records {
		keys[i] = keyOf(r)
	}
	idx := make([]int, len(c.records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return keys[idx[i]].less(keys[idx[j]]) })
	out := make([]*record.Record, len(c.records))
	for i, j := range idx {
		out[i] = c.records[j]
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	c.records = out
}

// Filter returns the records whose effective value for every constrained
// field is one of the accepted values. The effective value is the record's
// own, else the field's entry in defaults, else nil. Matching is exact and
// case-sensitive. The collection is not modified.
func (c *Collection) Filter(defaults map[string]any, constraints map[string][]any) []*record.Record {
	var out []*record.Record
	for _, r := range c.records {
		if matches(r, defaults, constraints) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *record.Record, defaults map[string]any, constraints map[string][]any) bool {
	for field, accepted := range constraints {
		v, ok := r.Get(field)
		if !ok {
			v = defaults[field]
		}
		hit := false
		for _, a := range accepted {
			if reflect.DeepEqual(v, a) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
