//go:build !unix

package export

import (
	"errors"
	"os"
	"strings"
)

// IsResourceExhausted reports whether err means the filesystem cannot take
// more writes.
func IsResourceExhausted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not enough space") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "quota")
}

// isCrossDevice is always true so a failed rename falls back to copying.
func isCrossDevice(err error) bool {
	return err != nil
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "in use") ||
		strings.Contains(msg, "locked") ||
		strings.Contains(msg, "busy")
}
