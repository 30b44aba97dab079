package apply

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/patchvet/patchvet/internal/config"
	"github.com/patchvet/patchvet/internal/diff"
)

func newTestRunner() *Runner {
	return NewRunner(config.Default(), nil)
}

func writeTreeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return abs
}

func readTreeFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", rel, err)
	}
	return string(data)
}

const updatePatch = `--- a/greet.txt
+++ b/greet.txt
@@ -1,3 +1,3 @@
 one
-two
+deux
 three
`

func TestRunner_DryRunClean(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "greet.txt", "one\ntwo\nthree\n")

	doc := mustParse(t, updatePatch)
	report, err := newTestRunner().DryRun(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("DryRun() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("OK() = false, want true; diagnostics: %v", report.Diagnostics())
	}
	if report.Files[0].Outcome != OutcomeClean {
		t.Errorf("Outcome = %v, want clean", report.Files[0].Outcome)
	}
	if got := readTreeFile(t, root, "greet.txt"); got != "one\ntwo\nthree\n" {
		t.Errorf("dry run modified the file: %q", got)
	}
}

func TestRunner_DryRunOffset(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "greet.txt", "pad1\npad2\none\ntwo\nthree\n")

	doc := mustParse(t, updatePatch)
	report, err := newTestRunner().DryRun(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("DryRun() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("OK() = false, want true")
	}
	f := report.Files[0]
	if f.Outcome != OutcomeOffset || f.Offset != 2 {
		t.Errorf("Outcome/Offset = %v/%d, want offset/2", f.Outcome, f.Offset)
	}
}

func TestRunner_DryRunFailed(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "greet.txt", "entirely\ndifferent\ncontent\n")

	doc := mustParse(t, updatePatch)
	report, err := newTestRunner().DryRun(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("DryRun() error = %v", err)
	}
	if report.OK() {
		t.Fatalf("OK() = true, want false")
	}
	f := report.Files[0]
	if f.Outcome != OutcomeFailed || f.Err == nil || f.Err.Kind != diff.KindHunkApplyFailed {
		t.Errorf("Outcome = %v, Err = %v, want failed with hunk_apply_failed", f.Outcome, f.Err)
	}
}

func TestRunner_ApplyUpdate(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "greet.txt", "one\ntwo\nthree\n")

	doc := mustParse(t, updatePatch)
	report, err := newTestRunner().Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("OK() = false: %v", report.Diagnostics())
	}
	if got := readTreeFile(t, root, "greet.txt"); got != "one\ndeux\nthree\n" {
		t.Errorf("content = %q, want %q", got, "one\ndeux\nthree\n")
	}
}

func TestRunner_ApplyCreateAndDelete(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "removed.txt", "gone\n")

	patch := `--- /dev/null
+++ b/sub/created.txt
@@ -0,0 +1,2 @@
+first
+second
--- a/removed.txt
+++ /dev/null
@@ -1,1 +0,0 @@
-gone
`
	doc := mustParse(t, patch)
	report, err := newTestRunner().Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("OK() = false: %v", report.Diagnostics())
	}
	if got := readTreeFile(t, root, "sub/created.txt"); got != "first\nsecond\n" {
		t.Errorf("created content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "removed.txt")); !os.IsNotExist(err) {
		t.Errorf("removed.txt still exists")
	}
}

func TestRunner_ApplyCreateConflict(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "created.txt", "already here\n")

	doc := mustParse(t, "--- /dev/null\n+++ b/created.txt\n@@ -0,0 +1 @@\n+new\n")
	report, err := newTestRunner().Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	f := report.Files[0]
	if f.Outcome != OutcomeFailed || f.Err == nil || f.Err.Kind != diff.KindPathConflict {
		t.Errorf("Err = %v, want path_conflict", f.Err)
	}
	if got := readTreeFile(t, root, "created.txt"); got != "already here\n" {
		t.Errorf("conflicting file was overwritten: %q", got)
	}
}

func TestRunner_ApplyDeleteMissing(t *testing.T) {
	root := t.TempDir()
	doc := mustParse(t, "--- a/absent.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-x\n")
	report, err := newTestRunner().Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	f := report.Files[0]
	if f.Err == nil || f.Err.Kind != diff.KindPathNotFound {
		t.Errorf("Err = %v, want path_not_found", f.Err)
	}
}

func TestRunner_ApplyRenameOnly(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "old.txt", "payload\n")

	patch := `diff --git a/old.txt b/new.txt
similarity index 100%
rename from old.txt
rename to new.txt
`
	doc := mustParse(t, patch)
	report, err := newTestRunner().Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("OK() = false: %v", report.Diagnostics())
	}
	if got := readTreeFile(t, root, "new.txt"); got != "payload\n" {
		t.Errorf("renamed content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "old.txt")); !os.IsNotExist(err) {
		t.Errorf("old.txt still exists after rename")
	}
}

func TestRunner_ApplyRenameWithContent(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "old.txt", "keep\nchange\n")

	patch := `diff --git a/old.txt b/new.txt
similarity index 60%
rename from old.txt
rename to new.txt
--- a/old.txt
+++ b/new.txt
@@ -1,2 +1,2 @@
 keep
-change
+changed
`
	doc := mustParse(t, patch)
	report, err := newTestRunner().Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("OK() = false: %v", report.Diagnostics())
	}
	if got := readTreeFile(t, root, "new.txt"); got != "keep\nchanged\n" {
		t.Errorf("content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "old.txt")); !os.IsNotExist(err) {
		t.Errorf("old.txt still exists after content-carrying rename")
	}
}

func TestRunner_BinaryRejected(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "img.png", "\x89PNG")

	doc := mustParse(t, "diff --git a/img.png b/img.png\nBinary files a/img.png and b/img.png differ\n")
	report, err := newTestRunner().Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	f := report.Files[0]
	if f.Err == nil || f.Err.Kind != diff.KindBinaryUnsupported {
		t.Errorf("Err = %v, want binary_unsupported", f.Err)
	}
}

func TestRunner_AtomicAllOrNothing(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "good.txt", "a\nb\n")
	writeTreeFile(t, root, "bad.txt", "unrelated\n")

	patch := `--- a/good.txt
+++ b/good.txt
@@ -1,2 +1,2 @@
 a
-b
+B
--- a/bad.txt
+++ b/bad.txt
@@ -1,1 +1,1 @@
-no such context
+x
`
	cfg := config.Default()
	cfg.Apply.Atomic = true
	doc := mustParse(t, patch)
	report, err := NewRunner(cfg, nil).Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.OK() {
		t.Fatalf("OK() = true, want false")
	}
	if got := readTreeFile(t, root, "good.txt"); got != "a\nb\n" {
		t.Errorf("good.txt = %q, atomic apply must not touch it", got)
	}

	// No staging directory left behind.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != "" && e.Name()[0] == '.' {
			t.Errorf("leftover staging directory %s", e.Name())
		}
	}
}

func TestRunner_BackupSnapshot(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "greet.txt", "one\ntwo\nthree\n")

	cfg := config.Default()
	cfg.Apply.Backup = true
	doc := mustParse(t, updatePatch)
	report, err := NewRunner(cfg, nil).Apply(context.Background(), doc, root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("OK() = false: %v", report.Diagnostics())
	}
	if got := readTreeFile(t, root, ".patchvet-backup/1/greet.txt"); got != "one\ntwo\nthree\n" {
		t.Errorf("backup content = %q, want the pre-apply content", got)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTreeFile(t, root, "greet.txt", "one\ntwo\nthree\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := mustParse(t, updatePatch)
	_, err := newTestRunner().Apply(ctx, doc, root)
	if err == nil || !diff.IsKind(err, diff.KindTimeout) {
		t.Errorf("error = %v, want kind timeout", err)
	}
}
