package apply

import (
	"strings"

	"github.com/patchvet/patchvet/internal/diff"
)

// matchOptions bundles the tolerance knobs for one application pass.
type matchOptions struct {
	radius  int
	maxFuzz int
}

// fileContent is file text split into lines plus the trailing-newline state,
// which hunks may change independently of the line content.
type fileContent struct {
	lines      []string
	trailingNL bool
}

func splitContent(s string) fileContent {
	if s == "" {
		return fileContent{trailingNL: true}
	}
	trailing := strings.HasSuffix(s, "\n")
	if trailing {
		s = s[:len(s)-1]
	}
	return fileContent{lines: strings.Split(s, "\n"), trailingNL: trailing}
}

func (c fileContent) join() string {
	if len(c.lines) == 0 {
		return ""
	}
	out := strings.Join(c.lines, "\n")
	if c.trailingNL {
		out += "\n"
	}
	return out
}

// hunkResult records where one hunk landed.
type hunkResult struct {
	// Offset is the distance from the declared position, after accounting
	// for the shift accumulated by earlier hunks in the same file.
	Offset int
	// Fuzz is the whitespace tolerance level that was needed to match.
	Fuzz int
}

// applyHunks applies all hunks of a file patch to in-memory content. On a
// hunk failure the remaining hunks of the file are abandoned (their cursor
// would be meaningless) and the error names the failed hunk; content
// produced so far is discarded by the caller.
func applyHunks(name string, content fileContent, hunks []*diff.Hunk, opt matchOptions) (fileContent, []hunkResult, *diff.PatchError) {
	lines := content.lines
	trailingNL := content.trailingNL
	results := make([]hunkResult, 0, len(hunks))
	shift := 0

	for i, h := range hunks {
		oldBody := h.OldBody()
		newBody := h.NewBody()
		oldTexts := lineTexts(oldBody)
		newTexts := lineTexts(newBody)

		var pos int
		var res hunkResult
		if len(oldBody) == 0 {
			// Pure insertion: the declared start names the line after
			// which to insert, so no context match is required.
			pos = h.OldStart + shift
			if pos < 0 || pos > len(lines) {
				return content, results, diff.HunkErrorf(diff.KindHunkApplyFailed, name, i+1,
					"insertion point %d outside file of %d lines", h.OldStart, len(lines))
			}
		} else {
			want := h.OldStart - 1 + shift
			if want < 0 {
				want = 0
			}
			p, offset, fuzz, ok := findHunk(lines, oldTexts, want, opt.radius, opt.maxFuzz)
			if !ok {
				candLine, ratio := closestCandidate(lines, oldTexts, want, opt.radius)
				msg := "context not found within %d lines of line %d"
				if candLine > 0 {
					return content, results, diff.HunkErrorf(diff.KindHunkApplyFailed, name, i+1,
						msg+" (closest candidate at line %d, similarity %.2f)",
						opt.radius, h.OldStart, candLine, ratio)
				}
				return content, results, diff.HunkErrorf(diff.KindHunkApplyFailed, name, i+1,
					msg, opt.radius, h.OldStart)
			}
			pos = p
			res.Offset = offset
			res.Fuzz = fuzz
		}

		atEOF := pos+len(oldBody) == len(lines)

		spliced := make([]string, 0, len(lines)-len(oldBody)+len(newBody))
		spliced = append(spliced, lines[:pos]...)
		spliced = append(spliced, newTexts...)
		spliced = append(spliced, lines[pos+len(oldBody):]...)
		lines = spliced

		// The new side of a hunk that reaches EOF decides whether the
		// result ends with a newline.
		if atEOF && len(newBody) > 0 {
			trailingNL = !newBody[len(newBody)-1].NoEOL
		}

		shift += len(newBody) - len(oldBody)
		results = append(results, res)
	}

	return fileContent{lines: lines, trailingNL: trailingNL}, results, nil
}

func lineTexts(lines []diff.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
