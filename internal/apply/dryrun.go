package apply

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patchvet/patchvet/internal/backup"
	"github.com/patchvet/patchvet/internal/config"
	"github.com/patchvet/patchvet/internal/diff"
	"github.com/patchvet/patchvet/internal/logging"
)

// Outcome is the per-file verdict of a dry run or application.
type Outcome int

const (
	// OutcomeClean - every hunk matched at its declared position
	OutcomeClean Outcome = iota
	// OutcomeOffset - applied, but at least one hunk matched away from its
	// declared position
	OutcomeOffset
	// OutcomeFailed - the file could not be patched
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeOffset:
		return "offset"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// FileReport is the result for one file patch.
type FileReport struct {
	Path    string // resolved tree-relative path
	Outcome Outcome
	Offset  int // largest per-hunk distance from the declared position
	Fuzz    int // highest whitespace tolerance level that was needed
	Err     *diff.PatchError
}

// Report aggregates per-file results. The document verdict is the
// conjunction: clean only when no file failed.
type Report struct {
	Files  []FileReport
	DryRun bool
}

// OK reports whether every file applied, cleanly or with offset.
func (r *Report) OK() bool {
	for _, f := range r.Files {
		if f.Outcome == OutcomeFailed {
			return false
		}
	}
	return len(r.Files) > 0
}

// Diagnostics returns the structured error of every failed file.
func (r *Report) Diagnostics() []*diff.PatchError {
	var out []*diff.PatchError
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f.Err)
		}
	}
	return out
}

// Runner applies patch documents against a tree. It holds no mutable state
// between calls; one Runner may serve many concurrent dry runs. Real
// applies against the same tree must be serialized by the caller (see
// workspace.AcquireLock).
type Runner struct {
	cfg *config.Config
	log *logging.Logger
}

func NewRunner(cfg *config.Config, log *logging.Logger) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{cfg: cfg, log: log}
}

// DryRun simulates the document against the tree without writing anything.
// Every file is read into memory, patched there, and the result discarded.
func (r *Runner) DryRun(ctx context.Context, doc *diff.Document, treeRoot string) (*Report, error) {
	return r.run(ctx, doc, treeRoot, true)
}

// Apply patches the tree for real. Each file is all-or-nothing (content is
// computed fully before any write, and writes are temp-file + rename); the
// document is applied file by file unless Apply.Atomic is set, in which
// case nothing is written until every file has matched.
func (r *Runner) Apply(ctx context.Context, doc *diff.Document, treeRoot string) (*Report, error) {
	return r.run(ctx, doc, treeRoot, false)
}

func (r *Runner) run(ctx context.Context, doc *diff.Document, treeRoot string, dryRun bool) (*Report, error) {
	tree, err := NewTree(treeRoot)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: dryRun}
	var commits []*fileCommit

	for i, f := range doc.Files {
		if ctx.Err() != nil {
			return report, diff.Errorf(diff.KindTimeout,
				"cancelled after %d of %d files", i, len(doc.Files))
		}
		fr, commit := r.planFile(tree, f)
		report.Files = append(report.Files, fr)
		var ferr error
		if fr.Err != nil {
			ferr = fr.Err
		}
		r.log.FileOutcome(fr.Path, dryRun, fr.Offset, ferr)
		if !dryRun && fr.Outcome != OutcomeFailed && commit != nil {
			commits = append(commits, commit)
		}
	}

	if dryRun {
		return report, nil
	}

	if r.cfg.Apply.Backup && len(commits) > 0 && (!r.cfg.Apply.Atomic || report.OK()) {
		if err := snapshotCommits(tree, commits); err != nil {
			return report, fmt.Errorf("backup: %w", err)
		}
	}

	if r.cfg.Apply.Atomic {
		if !report.OK() {
			// All-or-nothing: any failed file means nothing is written.
			return report, nil
		}
		if err := r.commitAtomic(ctx, tree, commits); err != nil {
			return report, err
		}
		return report, nil
	}

	for _, c := range commits {
		if ctx.Err() != nil {
			return report, diff.Errorf(diff.KindTimeout, "cancelled while committing %s", c.path)
		}
		if err := c.execute(tree); err != nil {
			return report, fmt.Errorf("commit %s: %w", c.path, err)
		}
	}
	return report, nil
}

// planFile validates and simulates one file patch in memory. It returns the
// report entry and, when the file would apply, the pending filesystem
// operations. Nothing on disk is touched here.
func (r *Runner) planFile(tree *Tree, f *diff.FilePatch) (FileReport, *fileCommit) {
	strip := r.cfg.Apply.Strip

	var srcRel, srcAbs, dstRel, dstAbs string
	var err error

	if !f.IsNew {
		if f.RenameFrom != "" {
			// rename from/to paths carry no a/ b/ prefix
			srcRel, srcAbs, err = tree.Resolve(f.RenameFrom, 0)
		} else {
			srcRel, srcAbs, err = tree.Resolve(f.OldPath, strip)
		}
		if err != nil {
			fr := failed(f.Name(), diff.FileErrorf(diff.KindPathNotFound, f.Name(), "unusable source path: %v", err))
			return fr, nil
		}
	}
	if !f.IsDelete {
		if f.RenameTo != "" {
			dstRel, dstAbs, err = tree.Resolve(f.RenameTo, 0)
		} else {
			dstRel, dstAbs, err = tree.Resolve(f.NewPath, strip)
		}
		if err != nil {
			fr := failed(f.Name(), diff.FileErrorf(diff.KindPathNotFound, f.Name(), "unusable target path: %v", err))
			return fr, nil
		}
	}

	display := dstRel
	if display == "" {
		display = srcRel
	}

	if f.IsBinary {
		if !r.cfg.Apply.BinaryPassthrough {
			return failed(display, diff.FileErrorf(diff.KindBinaryUnsupported, display,
				"binary patch cannot be applied; content reconstruction unsupported")), nil
		}
		// Pass-through: the content diff is ignored, only metadata applies.
		return r.planMetadata(tree, f, display, srcAbs, dstAbs, srcRel != dstRel)
	}

	switch {
	case f.IsDelete:
		return r.planDelete(tree, f, display, srcAbs)
	case f.IsNew:
		return r.planCreate(tree, f, display, dstAbs)
	case f.MetadataOnly():
		return r.planMetadata(tree, f, display, srcAbs, dstAbs, srcRel != dstRel)
	}
	return r.planUpdate(tree, f, display, srcAbs, dstAbs, srcRel != dstRel)
}

func (r *Runner) planDelete(tree *Tree, f *diff.FilePatch, display, srcAbs string) (FileReport, *fileCommit) {
	content, exists, err := tree.ReadFile(srcAbs)
	if err != nil {
		return failed(display, diff.FileErrorf(diff.KindPathNotFound, display, "read: %v", err)), nil
	}
	if !exists {
		return failed(display, diff.FileErrorf(diff.KindPathNotFound, display, "file to delete does not exist")), nil
	}

	fr := FileReport{Path: display}
	if len(f.Hunks) > 0 {
		// The hunks of a deletion describe the full old content; matching
		// them verifies we are deleting what the patch expects.
		_, results, herr := applyHunks(display, splitContent(content), f.Hunks, r.matchOptions())
		if herr != nil {
			return failed(display, herr), nil
		}
		fr.fold(results)
	}

	c := &fileCommit{path: display}
	c.removeAbs = srcAbs
	return fr, c
}

func (r *Runner) planCreate(tree *Tree, f *diff.FilePatch, display, dstAbs string) (FileReport, *fileCommit) {
	if tree.Exists(dstAbs) && !r.cfg.Apply.AllowOverwrite {
		return failed(display, diff.FileErrorf(diff.KindPathConflict, display, "file to create already exists")), nil
	}

	out, results, herr := applyHunks(display, fileContent{trailingNL: true}, f.Hunks, r.matchOptions())
	if herr != nil {
		return failed(display, herr), nil
	}

	fr := FileReport{Path: display}
	fr.fold(results)
	c := &fileCommit{path: display, writeAbs: dstAbs, content: out.join(), mode: f.NewMode}
	return fr, c
}

func (r *Runner) planMetadata(tree *Tree, f *diff.FilePatch, display, srcAbs, dstAbs string, renamed bool) (FileReport, *fileCommit) {
	if !tree.Exists(srcAbs) {
		return failed(display, diff.FileErrorf(diff.KindPathNotFound, display, "source file does not exist")), nil
	}
	if renamed && tree.Exists(dstAbs) && !r.cfg.Apply.AllowOverwrite {
		return failed(display, diff.FileErrorf(diff.KindPathConflict, display, "rename target already exists")), nil
	}

	c := &fileCommit{path: display}
	if renamed {
		c.renameOld, c.renameNew = srcAbs, dstAbs
	}
	if f.NewMode != "" && f.NewMode != f.OldMode {
		c.chmodAbs, c.chmodMode = dstAbs, f.NewMode
	}
	return FileReport{Path: display}, c
}

func (r *Runner) planUpdate(tree *Tree, f *diff.FilePatch, display, srcAbs, dstAbs string, renamed bool) (FileReport, *fileCommit) {
	content, exists, err := tree.ReadFile(srcAbs)
	if err != nil {
		return failed(display, diff.FileErrorf(diff.KindPathNotFound, display, "read: %v", err)), nil
	}
	if !exists {
		return failed(display, diff.FileErrorf(diff.KindPathNotFound, display, "file to patch does not exist")), nil
	}
	if renamed && tree.Exists(dstAbs) && !r.cfg.Apply.AllowOverwrite {
		return failed(display, diff.FileErrorf(diff.KindPathConflict, display, "rename target already exists")), nil
	}

	out, results, herr := applyHunks(display, splitContent(content), f.Hunks, r.matchOptions())
	if herr != nil {
		return failed(display, herr), nil
	}

	fr := FileReport{Path: display}
	fr.fold(results)

	c := &fileCommit{path: display, writeAbs: dstAbs, content: out.join(), mode: f.NewMode}
	if renamed {
		c.removeAbs = srcAbs
	}
	return fr, c
}

func (r *Runner) matchOptions() matchOptions {
	return matchOptions{radius: r.cfg.Match.SearchRadius, maxFuzz: r.cfg.Match.MaxFuzz}
}

func failed(path string, err *diff.PatchError) FileReport {
	return FileReport{Path: path, Outcome: OutcomeFailed, Err: err}
}

// fold aggregates per-hunk match results into the report entry.
func (fr *FileReport) fold(results []hunkResult) {
	for _, res := range results {
		if abs(res.Offset) > abs(fr.Offset) {
			fr.Offset = res.Offset
		}
		if res.Fuzz > fr.Fuzz {
			fr.Fuzz = res.Fuzz
		}
	}
	if fr.Offset != 0 {
		fr.Outcome = OutcomeOffset
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// fileCommit is the set of filesystem operations one applied file needs.
// Content is written first (temp + rename), the source unlinked last, so an
// interrupted commit can leave a stale source file but never lose data.
type fileCommit struct {
	path string // display

	writeAbs string
	content  string
	mode     string // git octal mode for the written file; "" keeps existing

	removeAbs string // source of a delete or content-carrying rename

	renameOld string // pure metadata rename
	renameNew string

	chmodAbs  string
	chmodMode string
}

func (c *fileCommit) execute(tree *Tree) error {
	if c.writeAbs != "" {
		mode, _ := parseGitMode(c.mode)
		if err := tree.WriteFileAtomic(c.writeAbs, c.content, mode); err != nil {
			return err
		}
	}
	if c.renameOld != "" {
		if err := tree.Rename(c.renameOld, c.renameNew); err != nil {
			return err
		}
	}
	if c.removeAbs != "" {
		if err := tree.Remove(c.removeAbs); err != nil {
			return err
		}
	}
	if c.chmodAbs != "" {
		if err := tree.Chmod(c.chmodAbs, c.chmodMode); err != nil {
			return err
		}
	}
	return nil
}

// snapshotCommits backs up every path the pending commits will touch, so the
// run can be undone later.
func snapshotCommits(tree *Tree, commits []*fileCommit) error {
	mgr, err := backup.NewManager(tree.Root())
	if err != nil {
		return err
	}
	var rels []string
	add := func(abs string) {
		if abs == "" {
			return
		}
		if rel, err := filepath.Rel(tree.Root(), abs); err == nil {
			rels = append(rels, rel)
		}
	}
	for _, c := range commits {
		add(c.writeAbs)
		add(c.removeAbs)
		add(c.renameOld)
		add(c.renameNew)
		add(c.chmodAbs)
	}
	_, err = mgr.Snapshot(rels)
	return err
}

// commitAtomic stages every content write in a scratch directory under the
// root, then renames into place only after all staging succeeded. The
// staging directory is removed unconditionally.
func (r *Runner) commitAtomic(ctx context.Context, tree *Tree, commits []*fileCommit) error {
	stage, err := os.MkdirTemp(tree.Root(), ".patchvet-stage-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	staged := make([]string, len(commits))
	for i, c := range commits {
		if ctx.Err() != nil {
			return diff.Errorf(diff.KindTimeout, "cancelled while staging %s", c.path)
		}
		if c.writeAbs == "" {
			continue
		}
		path := filepath.Join(stage, fmt.Sprintf("f%d", i))
		if err := os.WriteFile(path, []byte(c.content), 0600); err != nil {
			return fmt.Errorf("stage %s: %w", c.path, err)
		}
		staged[i] = path
	}

	for i, c := range commits {
		if staged[i] != "" {
			mode, ok := parseGitMode(c.mode)
			if !ok {
				if info, statErr := os.Stat(c.writeAbs); statErr == nil {
					mode = info.Mode().Perm()
				} else {
					mode = 0644
				}
			}
			_ = os.Chmod(staged[i], mode)
			if err := os.MkdirAll(filepath.Dir(c.writeAbs), 0755); err != nil {
				return fmt.Errorf("commit %s: %w", c.path, err)
			}
			if err := os.Rename(staged[i], c.writeAbs); err != nil {
				return fmt.Errorf("commit %s: %w", c.path, err)
			}
		}
		if c.renameOld != "" {
			if err := tree.Rename(c.renameOld, c.renameNew); err != nil {
				return fmt.Errorf("commit %s: %w", c.path, err)
			}
		}
		if c.removeAbs != "" {
			if err := tree.Remove(c.removeAbs); err != nil {
				return fmt.Errorf("commit %s: %w", c.path, err)
			}
		}
		if c.chmodAbs != "" {
			if err := tree.Chmod(c.chmodAbs, c.chmodMode); err != nil {
				return fmt.Errorf("commit %s: %w", c.path, err)
			}
		}
	}
	return nil
}
