// Package addon loads template helper extensions: Go source files
// interpreted at startup, whose exported functions become template
// functions namespaced by the file's base name. Addon code runs in a
// sandboxed interpreter and may import a small stdlib whitelist only.
package addon

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"bibrender/src/internal/logger"
)

// Func is the contract for addon helpers: they receive a plain map view of
// a record and return the string to splice into the document.
type Func func(fields map[string]any) string

// allowed are the stdlib packages addon files may import. Filesystem,
// network, and process access stay out.
var allowed = map[string]bool{
	"fmt":     true,
	"strings": true,
	"strconv": true,
	"sort":    true,
	"math":    true,
	"regexp":  true,
	"time":    true,
	"unicode": true,
}

// Load interprets each addon file and returns the combined registry mapping
// "<basename>_<FuncName>" to the extracted helper. All registration happens
// here, before any template rendering.
func Load(paths []string) (map[string]Func, error) {
	registry := map[string]Func{}
	for _, path := range paths {
		funcs, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("addon %s: %w", path, err)
		}
		ns := namespace(path)
		for name, fn := range funcs {
			key := ns + "_" + name
			if _, dup := registry[key]; dup {
				return nil, fmt.Errorf("addon %s: duplicate helper %s", path, key)
			}
			registry[key] = fn
			logger.Debugf("registered addon helper %s", key)
		}
	}
	return registry, nil
}

func loadFile(path string) (map[string]Func, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code := string(src)
	if err := validateImports(code); err != nil {
		return nil, err
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading interpreter stdlib: %w", err)
	}
	switch pkg := packageClause(code); pkg {
	case "":
		// bare helper functions; wrap them
		code = "package main\n\n" + code
	case "main":
	default:
		return nil, fmt.Errorf("addon package must be main, got %q", pkg)
	}
	if _, err := i.Eval(code); err != nil {
		return nil, fmt.Errorf("evaluating addon: %w", err)
	}
	out := map[string]Func{}
	for _, symbols := range i.Symbols("main") {
		for name, val := range symbols {
			if !isExportedFunc(name, val) {
				continue
			}
			fn, ok := val.Interface().(func(map[string]any) string)
			if !ok {
				logger.Debugf("skipping addon symbol %s: not func(map[string]any) string", name)
				continue
			}
			out[name] = fn
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no helper functions found (want exported func(map[string]any) string)")
	}
	return out, nil
}

func isExportedFunc(name string, val reflect.Value) bool {
	if name == "" || val.Kind() != reflect.Func {
		return false
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}

// validateImports rejects addon files importing anything off the whitelist.
func validateImports(code string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			if pkg := importPath(trimmed); pkg != "" && !allowed[pkg] {
				forbidden = append(forbidden, pkg)
			}
		case strings.HasPrefix(trimmed, "import "):
			if pkg := importPath(strings.TrimPrefix(trimmed, "import ")); pkg != "" && !allowed[pkg] {
				forbidden = append(forbidden, pkg)
			}
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

func importPath(s string) string {
	s = strings.TrimSpace(s)
	// drop an alias if present
	if i := strings.IndexByte(s, '"'); i > 0 {
		s = s[i:]
	}
	return strings.Trim(s, `"`)
}

func packageClause(code string) string {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "package "))
		}
	}
	return ""
}

// namespace derives the registry prefix from the addon file name:
// "extras/badges.go" -> "badges".
func namespace(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
