// Package diff parses unified-diff text into a structured patch document.
// Parsing is purely textual: nothing in this package touches a filesystem.
package diff

// LineOp classifies a single hunk body line.
type LineOp int

const (
	// OpContext - unchanged line present on both sides (space prefix)
	OpContext LineOp = iota
	// OpAdd - line present only on the new side (+ prefix)
	OpAdd
	// OpDelete - line present only on the old side (- prefix)
	OpDelete
)

func (op LineOp) String() string {
	switch op {
	case OpContext:
		return "context"
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Line is one body line of a hunk. Text excludes the +/-/space prefix but
// keeps a trailing \r when the patch was CRLF, so output round-trips the
// original line-ending choice.
type Line struct {
	Op    LineOp
	Text  string
	NoEOL bool // set by a following "\ No newline at end of file" marker
}

// Hunk is one @@ region of a file patch. Starts are 1-based; counts are the
// declared source/target line counts from the hunk header.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Section  string // free-text label after the closing @@, informational only
	Lines    []Line
}

// OldBody returns the old-side lines (context + deleted), in order.
func (h *Hunk) OldBody() []Line {
	out := make([]Line, 0, h.OldLines)
	for _, l := range h.Lines {
		if l.Op == OpContext || l.Op == OpDelete {
			out = append(out, l)
		}
	}
	return out
}

// NewBody returns the new-side lines (context + added), in order.
func (h *Hunk) NewBody() []Line {
	out := make([]Line, 0, h.NewLines)
	for _, l := range h.Lines {
		if l.Op == OpContext || l.Op == OpAdd {
			out = append(out, l)
		}
	}
	return out
}

// FilePatch is the set of changes for one file: ordered hunks plus metadata
// from git extended headers. Paths are kept exactly as written in the patch
// (including the a/ b/ prefixes); prefix stripping happens at apply time.
type FilePatch struct {
	OldPath string
	NewPath string

	RenameFrom string
	RenameTo   string

	OldMode string // octal, e.g. "100644"; empty when unchanged
	NewMode string

	IsBinary bool // "Binary files ... differ" / "GIT binary patch"
	IsNew    bool // old side is /dev/null or "new file mode" seen
	IsDelete bool // new side is /dev/null or "deleted file mode" seen

	Hunks []*Hunk
}

// Name returns the most useful display path for the file.
func (f *FilePatch) Name() string {
	switch {
	case f.RenameTo != "":
		return f.RenameTo
	case f.NewPath != "" && f.NewPath != devNull:
		return f.NewPath
	case f.OldPath != "" && f.OldPath != devNull:
		return f.OldPath
	}
	return f.NewPath
}

// MetadataOnly reports whether the patch carries no content hunks and is a
// pure rename/mode/create/delete operation.
func (f *FilePatch) MetadataOnly() bool {
	return len(f.Hunks) == 0 && !f.IsBinary
}

// substantive reports whether the entry describes an actual change. A bare
// ---/+++ pair with no hunks and no metadata is discarded during parsing.
func (f *FilePatch) substantive() bool {
	return len(f.Hunks) > 0 || f.IsBinary || f.RenameFrom != "" ||
		f.OldMode != "" || f.NewMode != "" || f.IsNew || f.IsDelete
}

// Document is an ordered sequence of file patches. A valid document has at
// least one entry; it is immutable once returned by Parse.
type Document struct {
	Files []*FilePatch
}

const devNull = "/dev/null"
