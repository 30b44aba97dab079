package diff

// Invert returns the structural inverse of the document: added and removed
// roles swap, as do old/new paths, ranges, and modes. Applying a patch and
// then its inverse returns a tree to its original content, including the
// newline-at-EOF state. The receiver is not modified.
func (d *Document) Invert() *Document {
	inv := &Document{Files: make([]*FilePatch, 0, len(d.Files))}
	for _, f := range d.Files {
		inv.Files = append(inv.Files, f.invert())
	}
	return inv
}

func (f *FilePatch) invert() *FilePatch {
	out := &FilePatch{
		OldPath:    f.NewPath,
		NewPath:    f.OldPath,
		RenameFrom: f.RenameTo,
		RenameTo:   f.RenameFrom,
		OldMode:    f.NewMode,
		NewMode:    f.OldMode,
		IsBinary:   f.IsBinary,
		IsNew:      f.IsDelete,
		IsDelete:   f.IsNew,
	}
	out.Hunks = make([]*Hunk, 0, len(f.Hunks))
	for _, h := range f.Hunks {
		out.Hunks = append(out.Hunks, h.invert())
	}
	return out
}

func (h *Hunk) invert() *Hunk {
	out := &Hunk{
		OldStart: h.NewStart,
		OldLines: h.NewLines,
		NewStart: h.OldStart,
		NewLines: h.OldLines,
		Section:  h.Section,
		Lines:    make([]Line, 0, len(h.Lines)),
	}
	for _, l := range h.Lines {
		switch l.Op {
		case OpAdd:
			l.Op = OpDelete
		case OpDelete:
			l.Op = OpAdd
		}
		out.Lines = append(out.Lines, l)
	}
	return out
}
