// Package report renders dry-run and apply results for the CLI.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/patchvet/patchvet/internal/apply"
	"github.com/patchvet/patchvet/internal/diff"
)

var (
	// Green for files that applied cleanly
	okColor = color.New(color.FgGreen)

	// Yellow for offset/fuzz applications
	warnColor = color.New(color.FgYellow)

	// Red for failures
	failColor = color.New(color.FgRed)

	// Faint white for detail lines
	detailColor = color.New(color.FgWhite, color.Faint)
)

// Write renders the per-file report followed by the aggregate verdict.
func Write(w io.Writer, r *apply.Report) {
	verb := "applied"
	if r.DryRun {
		verb = "would apply"
	}

	for _, f := range r.Files {
		switch f.Outcome {
		case apply.OutcomeClean:
			okColor.Fprintf(w, "✓ %s: %s cleanly\n", f.Path, verb)
		case apply.OutcomeOffset:
			warnColor.Fprintf(w, "~ %s: %s with offset %+d\n", f.Path, verb, f.Offset)
		case apply.OutcomeFailed:
			failColor.Fprintf(w, "✗ %s: failed\n", f.Path)
			if f.Err != nil {
				detailColor.Fprintf(w, "    %s\n", f.Err.Error())
			}
		}
		if f.Fuzz > 0 && f.Outcome != apply.OutcomeFailed {
			detailColor.Fprintf(w, "    matched with whitespace fuzz level %d\n", f.Fuzz)
		}
	}

	if r.OK() {
		okColor.Fprintf(w, "%d file(s) ok\n", len(r.Files))
		return
	}
	failed := 0
	for _, f := range r.Files {
		if f.Outcome == apply.OutcomeFailed {
			failed++
		}
	}
	failColor.Fprintf(w, "%d of %d file(s) failed\n", failed, len(r.Files))
}

// WriteParseError renders a format-stage rejection.
func WriteParseError(w io.Writer, err error) {
	if pe := diff.AsPatchError(err); pe != nil {
		failColor.Fprintf(w, "not a valid patch: %s\n", pe.Error())
		return
	}
	failColor.Fprintf(w, "not a valid patch: %v\n", err)
}

// Summary returns the one-line aggregate used in quiet mode.
func Summary(r *apply.Report) string {
	if r.OK() {
		return fmt.Sprintf("ok (%d files)", len(r.Files))
	}
	return "failed"
}
