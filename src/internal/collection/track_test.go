package collection

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"bibrender/src/internal/logger"
	"bibrender/src/internal/record"
)

func TestVerifyProcessedExactlyOnce(t *testing.T) {
	c := New()
	c.records = []*record.Record{
		rec(t, "title", "A", "year", 2020),
		rec(t, "title", "B", "year", 2021),
	}
	c.ResetProcessed()
	c.MarkProcessed(c.records[0])
	c.MarkProcessed(c.records[1])
	if err := c.VerifyProcessed(nil, false); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestVerifyProcessedReportsOffenders(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	c := New()
	c.records = []*record.Record{
		rec(t, "title", "Skipped", "year", 2020),
		rec(t, "title", "Twice", "year", 2021),
	}
	c.ResetProcessed()
	c.MarkProcessed(c.records[1])
	c.MarkProcessed(c.records[1])

	err := c.VerifyProcessed(nil, false)
	var ce *CoverageError
	if !errors.As(err, &ce) {
		t.Fatalf("want CoverageError, got %v", err)
	}
	if len(ce.Problems) != 2 {
		t.Fatalf("problems=%v", ce.Problems)
	}
	msg := err.Error()
	if !strings.Contains(msg, `"Skipped" not processed`) || !strings.Contains(msg, `"Twice" processed 2 times`) {
		t.Fatalf("message=%q", msg)
	}
}

func TestVerifyProcessedWarnOnly(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	c := New()
	c.records = []*record.Record{rec(t, "title", "A")}
	c.ResetProcessed()
	if err := c.VerifyProcessed(nil, true); err != nil {
		t.Fatalf("warn-only must not fail: %v", err)
	}
	if !strings.Contains(buf.String(), "not processed") {
		t.Fatalf("diagnostic missing: %q", buf.String())
	}
}

func TestVerifyProcessedSubsequence(t *testing.T) {
	c := New()
	c.records = []*record.Record{
		rec(t, "title", "A", "year", 2000),
		rec(t, "title", "B", "year", 2001),
	}
	c.ResetProcessed()
	c.MarkProcessed(c.records[0])
	// only the given subsequence is checked
	if err := c.VerifyProcessed(c.records[:1], false); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := c.VerifyProcessed(c.records[1:], false); err == nil {
		t.Fatalf("expected coverage error for unprocessed record")
	}
}

func TestResetProcessedClearsCounts(t *testing.T) {
	c := New()
	c.records = []*record.Record{rec(t, "title", "A")}
	c.MarkProcessed(c.records[0])
	c.ResetProcessed()
	if err := c.VerifyProcessed(nil, false); err == nil {
		t.Fatalf("reset should clear counts")
	}
}
