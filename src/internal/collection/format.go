package collection

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"bibrender/src/internal/dates"
	"bibrender/src/internal/logger"
	"bibrender/src/internal/record"
	"bibrender/src/internal/stringsx"
)

// Placeholders returned when a record lacks the field a helper needs.
const (
	missingVenue   = "--"
	missingPDFLink = "#"
)

// ListYears returns the distinct year values in the collection, descending.
// Records without a usable year count as defaultYear.
func (c *Collection) ListYears(defaultYear int) []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range c.records {
		y := defaultYear
		if v, ok := r.Get("year"); ok {
			y = dates.ToInt(v, defaultYear)
		}
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// CountByTypes counts records whose type is one of types. Records without a
// type field are skipped.
func (c *Collection) CountByTypes(types ...string) int {
	set := map[string]bool{}
	for _, t := range types {
		set[t] = true
	}
	n := 0
	for _, r := range c.records {
		if !r.Has("type") {
			continue
		}
		if set[r.String("type")] {
			n++
		}
	}
	return n
}

// Venue returns the publication venue for a record: journal for articles,
// booktitle (falling back to journal) for national venues, booktitle for
// everything else. A missing venue yields "--" and a warning.
func Venue(r *record.Record) string {
	var v string
	switch r.String("type") {
	case "article":
		v = r.String("journal")
	case "national":
		v = stringsx.FirstNonEmpty(r.String("booktitle"), r.String("journal"))
	default:
		v = r.String("booktitle")
	}
	if v == "" {
		logger.Warnf("no venue field for record %q", describe(r))
		return missingVenue
	}
	return v
}

// PDFLink returns the value of the first candidate field present on the
// record, "#" if none is. Without explicit candidates it checks url then pdf.
func PDFLink(r *record.Record, candidates ...string) string {
	if len(candidates) == 0 {
		candidates = []string{"url", "pdf"}
	}
	for _, f := range candidates {
		if r.Has(f) && r.String(f) != "" {
			return r.String(f)
		}
	}
	return missingPDFLink
}

// MonthName returns the English name of the record's month field, or "" when
// the month is absent or not 1-12.
func MonthName(r *record.Record) string {
	v, ok := r.Get("month")
	if !ok {
		return ""
	}
	return dates.MonthName(dates.ToInt(v, 0))
}

// VolNumPagesLocMonYear composes the citation fragment
// "volume(number), pp. pages, location, MonthName year", dropping clauses
// whose field is absent. Each present clause keeps its trailing separator
// even when nothing follows it.
func VolNumPagesLocMonYear(r *record.Record) string {
	var b strings.Builder
	if vol := r.String("volume"); vol != "" {
		b.WriteString(vol)
		if num := r.String("number"); num != "" {
			fmt.Fprintf(&b, "(%s)", num)
		}
		b.WriteString(", ")
	}
	if pages := r.String("pages"); pages != "" {
		fmt.Fprintf(&b, "pp. %s, ", pages)
	}
	if loc := r.String("location"); loc != "" {
		b.WriteString(loc + ", ")
	}
	if mn := MonthName(r); mn != "" {
		b.WriteString(mn + " ")
	}
	b.WriteString(r.String("year"))
	return b.String()
}

// EstimateAuthorCount counts comma-separated author segments. It returns -1
// with a warning when the author field is absent or when it uses the "and"
// conjunction, which makes comma counting unreliable.
func EstimateAuthorCount(r *record.Record) int {
	author := r.String("author")
	if author == "" {
		logger.Warnf("no author field for record %q", describe(r))
		return -1
	}
	if strings.Contains(author, " and ") {
		logger.Warnf("author list %q uses 'and'; cannot estimate count", author)
		return -1
	}
	return strings.Count(author, ",") + 1
}

// linkFields hold paths or URLs and are never escaped.
var linkFields = map[string]bool{"pdf": true, "img": true}

// EscapeAmpersandHTML returns a copy of the record with & replaced by &amp;
// in every string field except pdf and img. The original is not touched.
func EscapeAmpersandHTML(r *record.Record) *record.Record {
	return escapeAmpersand(r, "&amp;")
}

// EscapeAmpersandTeX is EscapeAmpersandHTML with the TeX escape \&.
func EscapeAmpersandTeX(r *record.Record) *record.Record {
	return escapeAmpersand(r, `\&`)
}

func escapeAmpersand(r *record.Record, repl string) *record.Record {
	out := r.Clone()
	for _, k := range out.Keys() {
		if linkFields[k] {
			continue
		}
		v, _ := out.Get(k)
		if s, ok := v.(string); ok {
			out.Set(k, strings.ReplaceAll(s, "&", repl))
		}
	}
	return out
}

// FieldAsHTMLLink renders an anchor element whose href is the record's field
// value and whose body is text. Empty target and cssClass are omitted. A
// record without the field yields "".
func FieldAsHTMLLink(r *record.Record, field, text, target, cssClass string) string {
	href := r.String(field)
	if href == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<a href=%q", href)
	if target != "" {
		fmt.Fprintf(&b, " target=%q", target)
	}
	if cssClass != "" {
		fmt.Fprintf(&b, " class=%q", cssClass)
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(text))
	b.WriteString("</a>")
	return b.String()
}

// describe names a record in diagnostics: its title when it has one, else
// its identity.
func describe(r *record.Record) string {
	if t := r.String("title"); t != "" {
		return t
	}
	if id := r.ID(); id != "" {
		return "id:" + id
	}
	return "(untitled)"
}
