// Package apply locates hunks in target files and produces the patched
// content, both for dry runs and for real application.
package apply

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Fuzz levels for context comparison. Matching always ignores a trailing
// \r so LF patches apply to CRLF files and vice versa; the stored line
// text keeps the original ending.
const (
	fuzzExact = iota // byte-for-byte (modulo \r)
	fuzzRStrip       // trailing whitespace ignored
	fuzzStrip        // all surrounding whitespace ignored
)

func normalizeLine(s string, fuzz int) string {
	s = strings.TrimSuffix(s, "\r")
	switch fuzz {
	case fuzzExact:
		return s
	case fuzzRStrip:
		return strings.TrimRight(s, " \t")
	default:
		return strings.TrimSpace(s)
	}
}

// matchAt reports whether body matches fileLines at pos under the given
// fuzz level.
func matchAt(fileLines, body []string, pos, fuzz int) bool {
	if pos < 0 || pos+len(body) > len(fileLines) {
		return false
	}
	for i, b := range body {
		if normalizeLine(fileLines[pos+i], fuzz) != normalizeLine(b, fuzz) {
			return false
		}
	}
	return true
}

// findHunk searches for body around the wanted position: exact first, then
// outward within radius, then again at looser fuzz levels up to maxFuzz.
// Returns the matched position, the distance from want, and the fuzz level
// that succeeded.
func findHunk(fileLines, body []string, want, radius, maxFuzz int) (pos, offset, fuzz int, ok bool) {
	if maxFuzz > fuzzStrip {
		maxFuzz = fuzzStrip
	}
	for fuzz = 0; fuzz <= maxFuzz; fuzz++ {
		if matchAt(fileLines, body, want, fuzz) {
			return want, 0, fuzz, true
		}
		for d := 1; d <= radius; d++ {
			if matchAt(fileLines, body, want-d, fuzz) {
				return want - d, -d, fuzz, true
			}
			if matchAt(fileLines, body, want+d, fuzz) {
				return want + d, d, fuzz, true
			}
		}
	}
	return 0, 0, 0, false
}

// closestCandidate scans the search window for the position most similar to
// body and returns its 1-based line number and similarity ratio. Used only
// to build diagnostics after a failed match.
func closestCandidate(fileLines, body []string, want, radius int) (line int, ratio float64) {
	if len(body) == 0 || len(fileLines) == 0 {
		return 0, 0
	}
	lo := want - radius
	if lo < 0 {
		lo = 0
	}
	hi := want + radius
	if max := len(fileLines) - len(body); hi > max {
		hi = max
	}
	best := -1
	for pos := lo; pos <= hi; pos++ {
		r := difflib.NewMatcher(fileLines[pos:pos+len(body)], body).Ratio()
		if r > ratio {
			ratio = r
			best = pos
		}
	}
	if best < 0 {
		return 0, 0
	}
	return best + 1, ratio
}
