package download

import (
	"errors"
	"fmt"
)

// DownloadFailedError wraps a network or integrity failure for one model.
// The whole batch may be retried later.
type DownloadFailedError struct {
	Model string
	Cause error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download failed for %s: %v", e.Model, e.Cause)
}

func (e *DownloadFailedError) Unwrap() error { return e.Cause }

// Retryable is always true; callers may retry the whole operation.
func (e *DownloadFailedError) Retryable() bool { return true }

// IsDownloadFailed reports whether err is or wraps a DownloadFailedError.
func IsDownloadFailed(err error) bool {
	var de *DownloadFailedError
	return errors.As(err, &de)
}

// integrityError signals a checksum or size mismatch on a fetched file.
type integrityError struct {
	file string
	// check is "sha256" or "size".
	check     string
	want, got string
}

func (e integrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s %s, got %s", e.file, e.check, e.want, e.got)
}

// IsIntegrity reports whether err wraps a checksum mismatch.
func IsIntegrity(err error) bool {
	var ie integrityError
	return errors.As(err, &ie)
}

// statusError is a non-retried HTTP failure from the hub.
type statusError struct {
	url  string
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("hub returned %d for %s", e.code, e.url)
}

// IsNotFound reports whether the hub answered 404 for the file.
func IsNotFound(err error) bool {
	var se statusError
	return errors.As(err, &se) && se.code == 404
}
