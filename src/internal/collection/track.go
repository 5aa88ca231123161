package collection

import (
	"fmt"

	"bibrender/src/internal/logger"
	"bibrender/src/internal/record"
)

// ResetProcessed clears the per-record render counter. Call it before each
// full rendering pass.
func (c *Collection) ResetProcessed() {
	c.processed = map[string]int{}
}

// MarkProcessed counts one template rendering of the record. Records with
// identical title, year, and type share a counter.
func (c *Collection) MarkProcessed(r *record.Record) {
	if c.processed == nil {
		c.processed = map[string]int{}
	}
	c.processed[r.ID()]++
}

// VerifyProcessed checks that every record in records (the whole collection
// when nil) was marked exactly once. Offenders are reported; unless warnOnly
// is set they are also returned as a CoverageError.
func (c *Collection) VerifyProcessed(records []*record.Record, warnOnly bool) error {
	if records == nil {
		records = c.records
	}
	var problems []string
	for _, r := range records {
		switch n := c.processed[r.ID()]; n {
		case 1:
		case 0:
			problems = append(problems, fmt.Sprintf("record %q not processed", describe(r)))
		default:
			problems = append(problems, fmt.Sprintf("record %q processed %d times", describe(r), n))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	for _, p := range problems {
		logger.Warnf("%s", p)
	}
	if warnOnly {
		return nil
	}
	return &CoverageError{Problems: problems}
}
