package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means no transfer carries the given code.
	ErrNotFound = errors.New("transfer not found")

	// ErrExpired means the transfer's expiry has passed, whether or not the
	// sweeper has physically purged it yet.
	ErrExpired = errors.New("transfer expired")

	// ErrFileNotFound means the transfer exists but holds no file at the
	// requested index.
	ErrFileNotFound = errors.New("file not found")

	// ErrCodeSpaceExhausted means repeated code generation kept colliding
	// with live transfers. Practically unreachable while the number of
	// concurrently-live transfers stays far below the 900k code space.
	ErrCodeSpaceExhausted = errors.New("transfer code space exhausted")
)

// ValidationError rejects an upload before any network activity begins,
// e.g. for an oversized batch. Not retryable as-is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PartialUploadError reports an upload that failed partway through. The
// transfer row and the already-uploaded files are left in place; normal
// expiry reclaims them if the sender walks away instead of retrying.
type PartialUploadError struct {
	Code     string   // the issued code, still usable for a retry window
	Uploaded []string // names of files fully recorded before the failure
	Failed   string   // name of the file that failed
	Err      error
}

func (e *PartialUploadError) Error() string {
	done := "none"
	if len(e.Uploaded) > 0 {
		done = strings.Join(e.Uploaded, ", ")
	}
	return fmt.Sprintf("upload of %q failed after completing %s: %v", e.Failed, done, e.Err)
}

func (e *PartialUploadError) Unwrap() error { return e.Err }

// BundleError reports a failure while assembling the all-files archive. It
// is distinct from a single-file fetch failure; no partial archive is
// surfaced to the caller.
type BundleError struct {
	FileName string
	Err      error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("bundling %q: %v", e.FileName, e.Err)
}

func (e *BundleError) Unwrap() error { return e.Err }
