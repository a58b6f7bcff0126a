package wiki

import (
	"errors"
	"fmt"
)

var (
	// ErrPageNotFound is returned when no page exists at the given path.
	ErrPageNotFound = errors.New("page not found")

	// ErrPageExists is returned by Create when the path is already taken.
	ErrPageExists = errors.New("page already exists")

	// ErrFileNotFound is returned when no file with the given id is indexed.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidPath is returned for paths that cannot name a page.
	ErrInvalidPath = errors.New("invalid page path")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidFileType is returned when the filename is empty or its
	// extension is denylisted.
	ErrInvalidFileType = errors.New("invalid file type")
)

// ConflictError is returned when an optimistic page update loses the ETag
// race. It carries the current server-side page so the caller can present
// both versions for manual resolution; the losing write is never retried
// automatically, since overwriting the winner would lose data.
type ConflictError struct {
	Path    string
	Current *Page
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("page %q was modified concurrently", e.Path)
}

// IsConflict reports whether err is an optimistic locking conflict.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
