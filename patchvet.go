// Package patchvet answers two questions about a unified diff: is it a
// well-formed patch, and would it (or does it) apply against a file tree
// with patch -p1 semantics.
//
// CheckFormat and CheckApplies are the boolean gates; ParseDocument, DryRun
// and Apply are the diagnostic forms that return structured per-file,
// per-hunk results.
package patchvet

import (
	"context"
	"os"
	"time"

	"github.com/patchvet/patchvet/internal/apply"
	"github.com/patchvet/patchvet/internal/config"
	"github.com/patchvet/patchvet/internal/diff"
	"github.com/patchvet/patchvet/internal/logging"
	"github.com/patchvet/patchvet/internal/workspace"
)

// Re-exported so callers outside the module can name engine types.
type (
	Document   = diff.Document
	FilePatch  = diff.FilePatch
	Hunk       = diff.Hunk
	PatchError = diff.PatchError
	Kind       = diff.Kind

	Config     = config.Config
	Report     = apply.Report
	FileReport = apply.FileReport
	Outcome    = apply.Outcome
)

const (
	KindMalformedLine     = diff.KindMalformedLine
	KindHunkCountMismatch = diff.KindHunkCountMismatch
	KindPatchEmpty        = diff.KindPatchEmpty
	KindHunkApplyFailed   = diff.KindHunkApplyFailed
	KindBinaryUnsupported = diff.KindBinaryUnsupported
	KindPathNotFound      = diff.KindPathNotFound
	KindPathConflict      = diff.KindPathConflict
	KindTimeout           = diff.KindTimeout

	OutcomeClean  = apply.OutcomeClean
	OutcomeOffset = apply.OutcomeOffset
	OutcomeFailed = apply.OutcomeFailed
)

// DefaultConfig returns the engine defaults (fuzz 2, search radius 200,
// -p1, 30s timeout).
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads a yaml config file.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// CheckFormat reports whether the text is a syntactically well-formed
// unified diff with at least one file patch. It never touches a filesystem
// and is bounded by the input length.
func CheckFormat(patchText string) bool {
	_, err := diff.Parse(patchText)
	return err == nil
}

// ParseDocument is the diagnostic form of CheckFormat: the structured
// document, or a *PatchError describing the first problem.
func ParseDocument(patchText string) (*Document, error) {
	return diff.Parse(patchText)
}

// CheckApplies reports whether the patch file would apply cleanly (possibly
// with offsets) against the tree, within the timeout. The patch is resolved
// with the -p1 prefix-stripping convention. On timeout it returns false;
// outstanding work observes cancellation and leaves no residue.
func CheckApplies(patchFile, treeRoot string, timeoutSeconds int) bool {
	data, err := os.ReadFile(patchFile)
	if err != nil {
		return false
	}
	doc, err := diff.Parse(string(data))
	if err != nil {
		return false
	}

	cfg := config.Default()
	if timeoutSeconds > 0 {
		cfg.Check.TimeoutSeconds = timeoutSeconds
	}
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Check.TimeoutSeconds)*time.Second)
	defer cancel()

	report, err := DryRun(ctx, doc, treeRoot, cfg)
	return err == nil && report.OK()
}

// DryRun simulates the document against the tree and reports per-file
// outcomes without writing anything. The context deadline bounds the whole
// run; the simulation goroutine observes cancellation between files.
func DryRun(ctx context.Context, doc *Document, treeRoot string, cfg *Config) (*Report, error) {
	runner, log, err := newRunner(cfg)
	if err != nil {
		return nil, err
	}
	defer log.Close()
	log.Parsed(len(doc.Files), countHunks(doc))

	type result struct {
		report *Report
		err    error
	}
	ch := make(chan result, 1)
	start := time.Now()
	go func() {
		rep, err := runner.DryRun(ctx, doc, treeRoot)
		ch <- result{rep, err}
	}()

	select {
	case res := <-ch:
		log.CheckDone("dry_run", res.err == nil && res.report.OK(), time.Since(start))
		return res.report, res.err
	case <-ctx.Done():
		log.CheckDone("dry_run", false, time.Since(start))
		return nil, diff.Errorf(diff.KindTimeout, "dry run exceeded deadline")
	}
}

// Apply patches the tree for real, holding the tree lock so concurrent
// applies against the same root are serialized. Per-file writes are atomic;
// set Config.Apply.Atomic for all-files-or-nothing semantics.
func Apply(ctx context.Context, doc *Document, treeRoot string, cfg *Config) (*Report, error) {
	lock, err := workspace.AcquireLock(treeRoot)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	runner, log, err := newRunner(cfg)
	if err != nil {
		return nil, err
	}
	defer log.Close()
	log.Parsed(len(doc.Files), countHunks(doc))

	start := time.Now()
	report, err := runner.Apply(ctx, doc, treeRoot)
	log.CheckDone("apply", err == nil && report != nil && report.OK(), time.Since(start))
	return report, err
}

func countHunks(doc *Document) int {
	n := 0
	for _, f := range doc.Files {
		n += len(f.Hunks)
	}
	return n
}

func newRunner(cfg *Config) (*apply.Runner, *logging.Logger, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log, err := logging.New(cfg.Log.Path, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return apply.NewRunner(cfg, log), log, nil
}
