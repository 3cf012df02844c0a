// Package errmsg provides consistent error messages for log lines and the
// command line.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Import operations
	OpArtistImport Op = "import artist"
	OpAlbumImport  Op = "import album"
	OpCatalogQuery Op = "query catalog"

	// Cleanup operations
	OpAlbumCleanup Op = "clean up album"
	OpTodoScan     Op = "scan todo tree"

	// Retag operations
	OpGenreRetag Op = "correct genre"

	// History operations
	OpHistoryOpen   Op = "open history"
	OpHistoryRecord Op = "record history"
	OpHistoryList   Op = "list history"

	// Daemon operations
	OpLockAcquire Op = "acquire instance lock"
	OpRun         Op = "run pipelines"
	OpConfigLoad  Op = "load configuration"
	OpInitialize  Op = "initialize application"
)

// Failed returns the message used when op fails, e.g. "failed to import album".
func (op Op) Failed() string {
	return "failed to " + string(op)
}

// Format creates the message printed when a command fails.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}
