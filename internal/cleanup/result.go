package cleanup

// Outcome is what happened to one todo album.
type Outcome int

const (
	// OutcomeCleaned means the album was moved to the electro tree.
	OutcomeCleaned Outcome = iota + 1
	// OutcomeSkipped means the album still waits for manual correction.
	OutcomeSkipped
	// OutcomeRemoved means the album directory was empty and was removed.
	OutcomeRemoved
	// OutcomeFailed means an error stopped the album.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCleaned:
		return "cleaned"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRemoved:
		return "removed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one todo album after a run.
type Result struct {
	Artist      string
	Album       string
	Outcome     Outcome
	Reason      string
	Destination string
	Files       int
	Bytes       int64
}

// Summary collects the results of a run.
type Summary struct {
	Results []Result
}

// Count returns the number of albums with the given outcome.
func (s Summary) Count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Bytes returns the total size of the files moved by the run.
func (s Summary) Bytes() int64 {
	var n int64
	for _, r := range s.Results {
		n += r.Bytes
	}
	return n
}
