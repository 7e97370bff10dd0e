package audit

import (
	"context"
	"time"
)

// FailureFunc is told about entries a sink refused.
type FailureFunc func(entry Entry, err error)

// Recorder stamps and appends entries.
type Recorder struct {
	sink      Sink
	now       func() time.Time
	onFailure FailureFunc
}

// NewRecorder returns a Recorder writing to sink. A nil sink drops entries.
func NewRecorder(sink Sink, now func() time.Time, onFailure FailureFunc) *Recorder {
	if sink == nil {
		sink = NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}
	if onFailure == nil {
		onFailure = func(Entry, error) {}
	}
	return &Recorder{sink: sink, now: now, onFailure: onFailure}
}

// Record assigns a timestamp and id, then appends. It returns once the sink
// has answered; sink errors go to the failure callback only.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	entry.Timestamp = r.now().UTC()
	entry.ID = NewEntryID(entry.Timestamp)
	if entry.Method == "" {
		entry.Method = MethodPassword
	}

	if err := r.sink.Append(ctx, entry); err != nil {
		r.onFailure(entry, err)
	}
}

// Sink exposes the destination, for history queries.
func (r *Recorder) Sink() Sink {
	return r.sink
}
