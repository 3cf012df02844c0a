package importer

// Outcome is the terminal state of one album in a run.
type Outcome int

const (
	// OutcomeImported means the album was tagged and moved to the electro tree.
	OutcomeImported Outcome = iota + 1
	// OutcomePending means no catalog identifier was found and the album
	// was moved to the todo tree.
	OutcomePending
	// OutcomeGeneral means the album was moved to the general tree.
	OutcomeGeneral
	// OutcomeRejected means validation failed and the album was left in place.
	OutcomeRejected
	// OutcomeFailed means an unexpected error stopped the album.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeImported:
		return "imported"
	case OutcomePending:
		return "pending"
	case OutcomeGeneral:
		return "general"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes what happened to one album.
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
