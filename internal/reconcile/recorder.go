package reconcile

import (
	"github.com/Ning0612/Filestate/internal/domain"
)

// Occurrence is one recorded state transition of a run
type Occurrence struct {
	Path  string
	Event domain.Event
}

// Recorder collects the events a run emitted, in emission order. It is
// the seam a notification system would hang off; for now callers read
// the occurrences back after the run.
type Recorder struct {
	occurrences []Occurrence
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record notes one transition; the empty event is not a transition
func (r *Recorder) Record(path string, event domain.Event) {
	if event == domain.EventNone {
		return
	}
	r.occurrences = append(r.occurrences, Occurrence{Path: path, Event: event})
}

// Occurrences returns everything recorded so far
func (r *Recorder) Occurrences() []Occurrence {
	return r.occurrences
}
