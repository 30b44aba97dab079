package report

import (
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/patchvet/patchvet/internal/apply"
	"github.com/patchvet/patchvet/internal/diff"
)

func TestWrite(t *testing.T) {
	color.NoColor = true

	r := &apply.Report{
		DryRun: true,
		Files: []apply.FileReport{
			{Path: "clean.txt", Outcome: apply.OutcomeClean},
			{Path: "moved.txt", Outcome: apply.OutcomeOffset, Offset: 3, Fuzz: 1},
			{Path: "broken.txt", Outcome: apply.OutcomeFailed,
				Err: diff.HunkErrorf(diff.KindHunkApplyFailed, "broken.txt", 2, "context not found")},
		},
	}

	var b strings.Builder
	Write(&b, r)
	out := b.String()

	for _, want := range []string{
		"clean.txt: would apply cleanly",
		"moved.txt: would apply with offset +3",
		"whitespace fuzz level 1",
		"broken.txt: failed",
		"hunk #2",
		"1 of 3 file(s) failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSummary(t *testing.T) {
	ok := &apply.Report{Files: []apply.FileReport{{Path: "a", Outcome: apply.OutcomeClean}}}
	if got := Summary(ok); got != "ok (1 files)" {
		t.Errorf("Summary() = %q", got)
	}
	bad := &apply.Report{Files: []apply.FileReport{{Path: "a", Outcome: apply.OutcomeFailed}}}
	if got := Summary(bad); got != "failed" {
		t.Errorf("Summary() = %q", got)
	}
}
