// Package render executes a user template over the bibliography and streams
// the result to the output file. text/template is used rather than
// html/template: the same machinery produces TeX and plain text, and HTML
// escaping is an explicit per-record helper.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"bibrender/src/internal/addon"
	"bibrender/src/internal/collection"
	"bibrender/src/internal/record"
)

// Funcs builds the template function map: the collection's query and
// formatting helpers plus any addon-registered helpers. Addon helpers take
// a record and see its plain map view.
func Funcs(c *collection.Collection, addons map[string]addon.Func) template.FuncMap {
	funcs := template.FuncMap{
		"records":   c.Records,
		"listYears": c.ListYears,
		"countByTypes": func(types ...string) int {
			return c.CountByTypes(types...)
		},
		"filterType": func(types ...string) []*record.Record {
			accepted := make([]any, len(types))
			for i, t := range types {
				accepted[i] = t
			}
			return c.Filter(nil, map[string][]any{"type": accepted})
		},
		"venue": collection.Venue,
		"pdfLink": func(r *record.Record, candidates ...string) string {
			return collection.PDFLink(r, candidates...)
		},
		"monthName":             collection.MonthName,
		"volNumPagesLocMonYear": collection.VolNumPagesLocMonYear,
		"estimateAuthorCount":   collection.EstimateAuthorCount,
		"htmlEscapeAmpersand":   collection.EscapeAmpersandHTML,
		"texEscapeAmpersand":    collection.EscapeAmpersandTeX,
		"fieldAsHtmlLink":       collection.FieldAsHTMLLink,
		"markProcessed": func(r *record.Record) string {
			c.MarkProcessed(r)
			return ""
		},
	}
	for name, fn := range addons {
		fn := fn
		funcs[name] = func(r *record.Record) string {
			return fn(r.Map())
		}
	}
	return funcs
}

// File renders tmplPath over the collection into outPath and then checks
// that the template referenced every record exactly once. With warnOnly the
// coverage check only emits diagnostics.
func File(tmplPath, outPath string, c *collection.Collection, addons map[string]addon.Func, warnOnly bool) error {
	tmpl, err := template.New(filepath.Base(tmplPath)).Funcs(Funcs(c, addons)).ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	c.ResetProcessed()
	if execErr := tmpl.Execute(f, c.Records()); execErr != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", tmplPath, execErr)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return c.VerifyProcessed(nil, warnOnly)
}
