package diff

import "fmt"

// Kind classifies patch errors for callers that need more than a boolean.
type Kind int

const (
	// Format-stage kinds: produced by Parse, make CheckFormat return false.

	// KindMalformedLine - a line inside a hunk body matched no known role
	KindMalformedLine Kind = iota + 1
	// KindHunkCountMismatch - declared line counts disagree with the body
	KindHunkCountMismatch
	// KindPatchEmpty - the text produced zero file patches
	KindPatchEmpty

	// Apply-stage kinds: produced by apply/dry-run, recovered per file.

	// KindHunkApplyFailed - context not found within the search radius
	KindHunkApplyFailed
	// KindBinaryUnsupported - binary patch rejected for application
	KindBinaryUnsupported
	// KindPathNotFound - source path missing for a metadata operation
	KindPathNotFound
	// KindPathConflict - target path already exists and overwrite is off
	KindPathConflict
	// KindTimeout - the whole check was cancelled at the deadline
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindMalformedLine:
		return "malformed_line"
	case KindHunkCountMismatch:
		return "hunk_count_mismatch"
	case KindPatchEmpty:
		return "patch_empty"
	case KindHunkApplyFailed:
		return "hunk_apply_failed"
	case KindBinaryUnsupported:
		return "binary_unsupported"
	case KindPathNotFound:
		return "path_not_found"
	case KindPathConflict:
		return "path_conflict"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// PatchError is the structured diagnostic for every engine failure: which
// file, which hunk, what kind, and a human-readable message. It doubles as
// the (file, hunk-index, error-kind, message) tuple surfaced in reports.
type PatchError struct {
	Kind    Kind
	File    string // display path; empty for document-level errors
	Hunk    int    // 1-based hunk index; 0 when not hunk-scoped
	Line    int    // 1-based line offset in the patch text; 0 when n/a
	Message string
}

// Error implements the error interface.
func (e *PatchError) Error() string {
	switch {
	case e.File != "" && e.Hunk > 0:
		return fmt.Sprintf("%s: %s: hunk #%d: %s", e.Kind, e.File, e.Hunk, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.File, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %s", e.Kind, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf creates a PatchError with a formatted message.
func Errorf(kind Kind, format string, args ...any) *PatchError {
	return &PatchError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FileErrorf creates a PatchError scoped to a file.
func FileErrorf(kind Kind, file string, format string, args ...any) *PatchError {
	return &PatchError{Kind: kind, File: file, Message: fmt.Sprintf(format, args...)}
}

// HunkErrorf creates a PatchError scoped to one hunk of a file.
func HunkErrorf(kind Kind, file string, hunk int, format string, args ...any) *PatchError {
	return &PatchError{Kind: kind, File: file, Hunk: hunk, Message: fmt.Sprintf(format, args...)}
}

// LineErrorf creates a PatchError pointing at a patch-text line.
func LineErrorf(kind Kind, line int, format string, args ...any) *PatchError {
	return &PatchError{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// AsPatchError unwraps err into a *PatchError, or nil if it is not one.
func AsPatchError(err error) *PatchError {
	if pe, ok := err.(*PatchError); ok {
		return pe
	}
	return nil
}

// IsKind reports whether err is a PatchError of the given kind.
func IsKind(err error, k Kind) bool {
	pe := AsPatchError(err)
	return pe != nil && pe.Kind == k
}
