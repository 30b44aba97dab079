package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// lineKind classifies one raw line of patch text. Classification is
// context-free; the builder reinterprets body-looking lines while it is
// inside a declared hunk body (so "--- x" can be a deletion of "-- x").
type lineKind int

const (
	lineOther lineKind = iota
	lineDiffGit
	lineIndex
	lineOldMode
	lineNewMode
	lineNewFileMode
	lineDeletedFileMode
	lineRenameFrom
	lineRenameTo
	lineSimilarity
	lineBinary
	lineGitBinary
	lineOldFile
	lineNewFile
	lineHunkHeader
	lineNoEOL
	lineContext
	lineAdd
	lineDelete
)

// token is one classified line. raw is the original line without its
// newline; text is the kind-specific payload (body content, header path).
type token struct {
	kind lineKind
	num  int // 1-based offset in the patch text
	raw  string
	text string
	hunk hunkRange
}

// hunkRange holds the parsed numbers of an @@ header.
type hunkRange struct {
	oldStart, oldLines int
	newStart, newLines int
	section            string
}

var (
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(?: (.*))?$`)
	binaryRe     = regexp.MustCompile(`^Binary files (.+) and (.+) differ$`)
	diffGitRe    = regexp.MustCompile(`^diff --git (\S+) (\S+)$`)
)

// scan splits raw patch text into classified tokens. Lines are split on \n;
// a trailing \r stays in the stored text so CRLF content round-trips, but is
// ignored for classification.
func scan(input string) []token {
	lines := strings.Split(input, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	tokens := make([]token, 0, len(lines))
	for i, raw := range lines {
		tokens = append(tokens, scanLine(i+1, raw))
	}
	return tokens
}

func scanLine(num int, raw string) token {
	t := token{kind: lineOther, num: num, raw: raw}
	meta := strings.TrimSuffix(raw, "\r")

	switch {
	case strings.HasPrefix(meta, "diff --git "):
		t.kind = lineDiffGit
		// Quoted or space-containing paths fall through with empty text;
		// the ---/+++ headers that follow supply the paths then.
		if m := diffGitRe.FindStringSubmatch(meta); m != nil {
			t.text = m[1] + "\x00" + m[2]
		}
	case strings.HasPrefix(meta, "index "):
		t.kind = lineIndex
	case strings.HasPrefix(meta, "old mode "):
		t.kind = lineOldMode
		t.text = strings.TrimPrefix(meta, "old mode ")
	case strings.HasPrefix(meta, "new mode "):
		t.kind = lineNewMode
		t.text = strings.TrimPrefix(meta, "new mode ")
	case strings.HasPrefix(meta, "new file mode "):
		t.kind = lineNewFileMode
		t.text = strings.TrimPrefix(meta, "new file mode ")
	case strings.HasPrefix(meta, "deleted file mode "):
		t.kind = lineDeletedFileMode
		t.text = strings.TrimPrefix(meta, "deleted file mode ")
	case strings.HasPrefix(meta, "rename from "):
		t.kind = lineRenameFrom
		t.text = strings.TrimPrefix(meta, "rename from ")
	case strings.HasPrefix(meta, "rename to "):
		t.kind = lineRenameTo
		t.text = strings.TrimPrefix(meta, "rename to ")
	case strings.HasPrefix(meta, "similarity index "), strings.HasPrefix(meta, "dissimilarity index "):
		t.kind = lineSimilarity
	case meta == "GIT binary patch":
		t.kind = lineGitBinary
	case strings.HasPrefix(meta, "--- "):
		t.kind = lineOldFile
		t.text = headerPath(meta[4:])
	case strings.HasPrefix(meta, "+++ "):
		t.kind = lineNewFile
		t.text = headerPath(meta[4:])
	case strings.HasPrefix(meta, "@@ "):
		if m := hunkHeaderRe.FindStringSubmatch(meta); m != nil {
			t.kind = lineHunkHeader
			t.hunk = hunkRange{
				oldStart: atoi(m[1]),
				oldLines: atoiDefault(m[2], 1),
				newStart: atoi(m[3]),
				newLines: atoiDefault(m[4], 1),
				section:  m[5],
			}
		}
	case strings.HasPrefix(meta, `\ No newline at end of file`), meta == `\ No newline`:
		t.kind = lineNoEOL
	default:
		if m := binaryRe.FindStringSubmatch(meta); m != nil {
			t.kind = lineBinary
			t.text = m[1] + "\x00" + m[2]
			break
		}
		if line, ok := bodyLine(raw); ok {
			switch line.Op {
			case OpContext:
				t.kind = lineContext
			case OpAdd:
				t.kind = lineAdd
			case OpDelete:
				t.kind = lineDelete
			}
			t.text = line.Text
		}
	}
	return t
}

// bodyLine interprets a raw line as a hunk body line. An entirely empty line
// counts as empty context: some mailers strip the trailing space from blank
// context lines and patch(1) tolerates that.
func bodyLine(raw string) (Line, bool) {
	if raw == "" || raw == "\r" {
		return Line{Op: OpContext, Text: strings.TrimSuffix(raw, "\r")}, true
	}
	switch raw[0] {
	case ' ':
		return Line{Op: OpContext, Text: raw[1:]}, true
	case '+':
		return Line{Op: OpAdd, Text: raw[1:]}, true
	case '-':
		return Line{Op: OpDelete, Text: raw[1:]}, true
	}
	return Line{}, false
}

// headerPath extracts the path from a ---/+++ header, dropping the optional
// tab-separated timestamp suffix that diff(1) emits.
func headerPath(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// splitPathPair undoes the two-path packing done by scanLine for the
// lineDiffGit and lineBinary kinds.
func splitPathPair(text string) (string, string) {
	if i := strings.IndexByte(text, '\x00'); i >= 0 {
		return text[:i], text[i+1:]
	}
	return text, ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoi(s)
}
