package importer

import (
	"errors"
	"fmt"
)

// RejectKind classifies why an album was not imported.
type RejectKind int

const (
	RejectIncomplete RejectKind = iota + 1
	RejectUpstream
	RejectEmpty
	RejectMissingTracks
	RejectMalformed
	RejectGeneral
	RejectInconsistent
	RejectUnresolvedArtist
	RejectUnresolvedLabel
)

func (k RejectKind) String() string {
	switch k {
	case RejectIncomplete:
		return "incomplete download"
	case RejectUpstream:
		return "upstream error"
	case RejectEmpty:
		return "empty album"
	case RejectMissingTracks:
		return "missing tracks"
	case RejectMalformed:
		return "still downloading or malformed"
	case RejectGeneral:
		return "moved to general music"
	case RejectInconsistent:
		return "inconsistent tags"
	case RejectUnresolvedArtist:
		return "unresolved artist"
	case RejectUnresolvedLabel:
		return "unresolved label"
	default:
		return "unknown"
	}
}

// Sentinel errors matching each rejection kind with errors.Is.
var (
	ErrIncomplete       = errors.New("incomplete download")
	ErrUpstream         = errors.New("upstream error")
	ErrEmpty            = errors.New("empty album")
	ErrMissingTracks    = errors.New("missing tracks")
	ErrMalformed        = errors.New("still downloading or malformed")
	ErrGeneral          = errors.New("moved to general music")
	ErrInconsistentTags = errors.New("inconsistent tags")
	ErrUnresolvedArtist = errors.New("unresolved artist")
	ErrUnresolvedLabel  = errors.New("unresolved label")
)

var kindErrors = map[RejectKind]error{
	RejectIncomplete:       ErrIncomplete,
	RejectUpstream:         ErrUpstream,
	RejectEmpty:            ErrEmpty,
	RejectMissingTracks:    ErrMissingTracks,
	RejectMalformed:        ErrMalformed,
	RejectGeneral:          ErrGeneral,
	RejectInconsistent:     ErrInconsistentTags,
	RejectUnresolvedArtist: ErrUnresolvedArtist,
	RejectUnresolvedLabel:  ErrUnresolvedLabel,
}

// Rejection is a classified validation failure. The album is left in
// place, except for RejectGeneral where it has already been moved.
type Rejection struct {
	Kind   RejectKind
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Reason == "" {
		return r.Kind.String()
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
}

// Unwrap returns the kind's sentinel and the underlying cause, if any.
func (r *Rejection) Unwrap() []error {
	errs := []error{kindErrors[r.Kind]}
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	return errs
}

func reject(kind RejectKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func rejectErr(kind RejectKind, err error, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// AsRejection returns the Rejection in err's chain, if any.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
