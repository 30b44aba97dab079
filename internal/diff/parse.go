package diff

import "strings"

// Parse builds a Document from unified-diff text. It accepts plain diffs
// (---/+++ headers plus @@ hunks) as well as git extended diffs with rename,
// mode, and binary metadata. Lines that match nothing outside a hunk body
// are treated as preamble and skipped, the way patch(1) skips garbage; the
// same lines inside a hunk body are errors.
//
// Parse never touches a filesystem and runs in a single pass over the input.
func Parse(patchText string) (*Document, error) {
	b := &builder{}
	for _, t := range scan(patchText) {
		if err := b.feed(t); err != nil {
			return nil, err
		}
	}
	return b.finish()
}

// builder assembles tokens into file patches. It tracks how many old/new
// side lines the current hunk still owes according to its declared counts;
// while either is outstanding the builder is "inside" the hunk body.
type builder struct {
	doc     Document
	file    *FilePatch
	hunk    *Hunk
	hunkIdx int // 1-based index of the current hunk within its file

	oldLeft int
	newLeft int

	fromGit   bool // current file was opened by a diff --git line
	sawOld    bool // current file has consumed its --- header
	afterBody bool // a hunk body just completed; stray body lines are errors
}

func (b *builder) feed(t token) error {
	// The no-newline marker binds to the immediately preceding body line,
	// which may be mid-body (old side ends early) or right after the body.
	if t.kind == lineNoEOL {
		if b.hunk == nil || len(b.hunk.Lines) == 0 {
			if b.inBody() {
				return LineErrorf(KindMalformedLine, t.num, "no-newline marker with no preceding line")
			}
			return nil
		}
		b.hunk.Lines[len(b.hunk.Lines)-1].NoEOL = true
		return nil
	}

	if b.inBody() {
		return b.feedBody(t)
	}

	switch t.kind {
	case lineHunkHeader:
		if b.file == nil {
			// Hunk with no preceding headers: header-less patches are
			// still syntactically valid, resolution fails later.
			b.openFile(&FilePatch{})
		}
		if b.file.IsBinary {
			return LineErrorf(KindMalformedLine, t.num, "hunk in binary patch for %s", b.file.Name())
		}
		b.hunk = &Hunk{
			OldStart: t.hunk.oldStart,
			OldLines: t.hunk.oldLines,
			NewStart: t.hunk.newStart,
			NewLines: t.hunk.newLines,
			Section:  t.hunk.section,
		}
		b.file.Hunks = append(b.file.Hunks, b.hunk)
		b.hunkIdx = len(b.file.Hunks)
		b.oldLeft = t.hunk.oldLines
		b.newLeft = t.hunk.newLines
		b.afterBody = false

	case lineDiffGit:
		b.closeFile()
		f := &FilePatch{}
		f.OldPath, f.NewPath = splitPathPair(t.text)
		b.openFile(f)
		b.fromGit = true

	case lineOldFile:
		if b.file == nil || !b.fromGit || b.sawOld || len(b.file.Hunks) > 0 {
			b.closeFile()
			b.openFile(&FilePatch{})
		}
		b.file.OldPath = t.text
		b.sawOld = true
		if t.text == devNull {
			b.file.IsNew = true
		}

	case lineNewFile:
		if b.file == nil {
			b.openFile(&FilePatch{})
		}
		b.file.NewPath = t.text
		if t.text == devNull {
			b.file.IsDelete = true
		}

	case lineOldMode:
		if b.file != nil {
			b.file.OldMode = t.text
		}
	case lineNewMode:
		if b.file != nil {
			b.file.NewMode = t.text
		}
	case lineNewFileMode:
		if b.file != nil {
			b.file.IsNew = true
			b.file.NewMode = t.text
		}
	case lineDeletedFileMode:
		if b.file != nil {
			b.file.IsDelete = true
			b.file.OldMode = t.text
		}
	case lineRenameFrom:
		if b.file != nil {
			b.file.RenameFrom = t.text
		}
	case lineRenameTo:
		if b.file != nil {
			b.file.RenameTo = t.text
		}

	case lineBinary:
		if b.file == nil {
			f := &FilePatch{}
			f.OldPath, f.NewPath = splitPathPair(t.text)
			b.openFile(f)
		}
		b.file.IsBinary = true
	case lineGitBinary:
		if b.file != nil {
			b.file.IsBinary = true
		}

	case lineIndex, lineSimilarity:
		// metadata we record nothing from

	case lineContext, lineAdd, lineDelete:
		// A body-shaped line directly after a completed hunk means the
		// body ran longer than the header declared.
		if b.afterBody && t.raw != "" && t.raw != "\r" {
			return b.countMismatch("body longer than declared")
		}
		// Otherwise preamble/garbage between sections; skipped.

	default:
		// lineOther outside a hunk body: preamble, skipped.
	}
	return nil
}

func (b *builder) feedBody(t token) error {
	// Mid-body, raw prefixes win over metadata classification: "--- x" here
	// is a deletion of "-- x", not a file header. Only lines that cannot be
	// body lines at all terminate the hunk early.
	switch t.kind {
	case lineHunkHeader, lineDiffGit, lineGitBinary:
		return b.countMismatch("body shorter than declared")
	}

	line, ok := bodyLine(t.raw)
	if !ok {
		return LineErrorf(KindMalformedLine, t.num, "unexpected line in hunk body: %q", t.raw)
	}

	switch line.Op {
	case OpContext:
		if b.oldLeft == 0 || b.newLeft == 0 {
			return b.countMismatch("more context lines than declared")
		}
		b.oldLeft--
		b.newLeft--
	case OpDelete:
		if b.oldLeft == 0 {
			return b.countMismatch("more removed lines than declared")
		}
		b.oldLeft--
	case OpAdd:
		if b.newLeft == 0 {
			return b.countMismatch("more added lines than declared")
		}
		b.newLeft--
	}
	b.hunk.Lines = append(b.hunk.Lines, line)
	if !b.inBody() {
		b.afterBody = true
	}
	return nil
}

func (b *builder) inBody() bool {
	return b.hunk != nil && (b.oldLeft > 0 || b.newLeft > 0)
}

func (b *builder) countMismatch(detail string) error {
	h := b.hunk
	observedOld, observedNew := 0, 0
	for _, l := range h.Lines {
		if l.Op != OpAdd {
			observedOld++
		}
		if l.Op != OpDelete {
			observedNew++
		}
	}
	return HunkErrorf(KindHunkCountMismatch, b.file.Name(), b.hunkIdx,
		"declared -%d,%d +%d,%d but observed %d source and %d target lines (%s)",
		h.OldStart, h.OldLines, h.NewStart, h.NewLines, observedOld, observedNew, detail)
}

func (b *builder) openFile(f *FilePatch) {
	b.file = f
	b.fromGit = false
	b.sawOld = false
	b.hunk = nil
	b.hunkIdx = 0
	b.afterBody = false
}

// closeFile finalizes the current file entry. Entries that describe no
// change at all (a stray ---/+++ pair) are dropped rather than kept.
func (b *builder) closeFile() {
	if b.file == nil {
		return
	}
	if b.file.substantive() {
		b.doc.Files = append(b.doc.Files, b.file)
	}
	b.file = nil
	b.hunk = nil
	b.hunkIdx = 0
	b.afterBody = false
}

func (b *builder) finish() (*Document, error) {
	if b.inBody() {
		return nil, b.countMismatch("patch text ended inside hunk body")
	}
	b.closeFile()
	if len(b.doc.Files) == 0 {
		return nil, Errorf(KindPatchEmpty, "no file patches found")
	}
	doc := b.doc
	return &doc, nil
}

// PathStrip removes the first n path components, the -p convention of
// patch(1). Stripping happens against forward slashes only; diff headers
// always use them.
func PathStrip(path string, n int) string {
	for ; n > 0; n-- {
		i := strings.IndexByte(path, '/')
		if i < 0 {
			return path
		}
		path = path[i+1:]
	}
	return path
}
