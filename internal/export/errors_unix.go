//go:build unix

package export

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// IsResourceExhausted reports whether err means the filesystem cannot take
// more writes: disk full, quota exceeded or read-only.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, unix.ENOSPC) ||
		errors.Is(err, unix.EDQUOT) ||
		errors.Is(err, unix.EROFS)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// isTransient reports errors a download client holding the file can cause.
func isTransient(err error) bool {
	return errors.Is(err, unix.EBUSY) ||
		errors.Is(err, unix.ETXTBSY) ||
		errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
