package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bibrender/src/internal/addon"
	"bibrender/src/internal/collection"
)

const bibYAML = `
- title: Newest & Best
  type: article
  journal: JOSS
  year: 2021
  month: 6
  author: A, B
- title: Older
  type: inproceedings
  booktitle: ICML
  year: 2019
`

func setup(t *testing.T) (*collection.Collection, string) {
	t.Helper()
	dir := t.TempDir()
	bib := filepath.Join(dir, "pubs.yaml")
	if err := os.WriteFile(bib, []byte(bibYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := collection.New()
	if err := c.Load(bib, true); err != nil {
		t.Fatalf("load: %v", err)
	}
	c.Sort(true)
	return c, dir
}

func writeTemplate(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tmpl.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func TestFileRendersWithHelpers(t *testing.T) {
	c, dir := setup(t)
	tmpl := writeTemplate(t, dir, `{{range records -}}
{{markProcessed .}}{{with htmlEscapeAmpersand .}}{{.String "title"}}{{end}} ({{venue .}}, {{monthName .}} {{.String "year"}})
{{end}}`)
	out := filepath.Join(dir, "out.html")
	if err := File(tmpl, out, c, nil, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(b)
	if !strings.Contains(got, "Newest &amp; Best (JOSS, June 2021)") {
		t.Fatalf("output: %q", got)
	}
	if !strings.Contains(got, "Older (ICML,  2019)") {
		t.Fatalf("output: %q", got)
	}
	// newest first
	if strings.Index(got, "Newest") > strings.Index(got, "Older") {
		t.Fatalf("order wrong: %q", got)
	}
}

func TestFileCoverageFailure(t *testing.T) {
	c, dir := setup(t)
	tmpl := writeTemplate(t, dir, `{{range filterType "article"}}{{markProcessed .}}{{.String "title"}}{{end}}`)
	out := filepath.Join(dir, "out.html")
	err := File(tmpl, out, c, nil, false)
	var ce *collection.CoverageError
	if !errors.As(err, &ce) {
		t.Fatalf("want CoverageError, got %v", err)
	}
	// warn-only renders the same template without failing
	if err := File(tmpl, out, c, nil, true); err != nil {
		t.Fatalf("warn-only: %v", err)
	}
}

func TestFileAddonHelpers(t *testing.T) {
	c, dir := setup(t)
	addonPath := filepath.Join(dir, "badges.go")
	src := `package main

import "strings"

func Badge(fields map[string]any) string {
	t, _ := fields["type"].(string)
	return "<" + strings.ToUpper(t) + ">"
}
`
	if err := os.WriteFile(addonPath, []byte(src), 0o644); err != nil {
		t.Fatalf("write addon: %v", err)
	}
	addons, err := addon.Load([]string{addonPath})
	if err != nil {
		t.Fatalf("addons: %v", err)
	}
	tmpl := writeTemplate(t, dir, `{{range records}}{{markProcessed .}}{{badges_Badge .}} {{end}}`)
	out := filepath.Join(dir, "out.txt")
	if err := File(tmpl, out, c, addons, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ := os.ReadFile(out)
	if !strings.Contains(string(b), "<ARTICLE>") || !strings.Contains(string(b), "<INPROCEEDINGS>") {
		t.Fatalf("output: %q", b)
	}
}

func TestFileBadTemplateFails(t *testing.T) {
	c, dir := setup(t)
	tmpl := writeTemplate(t, dir, `{{range records}{{end}}`)
	if err := File(tmpl, filepath.Join(dir, "out"), c, nil, false); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFuncsListYearsAndCounts(t *testing.T) {
	c, dir := setup(t)
	tmpl := writeTemplate(t, dir, `{{range records}}{{markProcessed .}}{{end}}{{range listYears 2100}}{{.}} {{end}}| {{countByTypes "article" "inproceedings"}}`)
	out := filepath.Join(dir, "out.txt")
	if err := File(tmpl, out, c, nil, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ := os.ReadFile(out)
	if got := string(b); !strings.Contains(got, "2021 2019 | 2") {
		t.Fatalf("output: %q", got)
	}
}
