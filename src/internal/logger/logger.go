// Package logger carries the tool's advisory diagnostics. Data-quality
// warnings (dropped duplicates, missing venue fields, ambiguous author
// lists) never abort a render; they are printed to stderr so the output
// file stays clean.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects diagnostics. Defaults to os.Stderr; tests swap in a
// buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Warnf prints an advisory diagnostic. Always emitted.
func Warnf(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "warning: "+format+"\n", args...)
}

// Debugf prints a diagnostic only when verbose mode is on.
func Debugf(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "debug: "+format+"\n", args...)
	}
}
