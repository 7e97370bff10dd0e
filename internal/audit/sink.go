package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Sink appends entries. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Reader is implemented by sinks that can list what they stored.
type Reader interface {
	// Recent returns up to limit entries for identifier, newest first.
	Recent(ctx context.Context, identifier string, limit int) ([]Entry, error)
}

// Counts totals every stored attempt for one identifier.
type Counts struct {
	Total      int
	Successful int
	Failed     int
}

// Counter is implemented by sinks that can total stored entries without
// listing them.
type Counter interface {
	Count(ctx context.Context, identifier string) (Counts, error)
}

// Tally totals entries that have already been loaded.
func Tally(entries []Entry) Counts {
	var c Counts
	for _, e := range entries {
		c.Total++
		if e.Success {
			c.Successful++
		} else {
			c.Failed++
		}
	}
	return c
}

// NoOpSink drops entries.
type NoOpSink struct{}

func (NoOpSink) Append(context.Context, Entry) error { return nil }

// ChannelSink hands entries to a buffered channel, waiting for room until ctx ends.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{entries: make(chan Entry, buffer)}
}

func (s *ChannelSink) Append(ctx context.Context, entry Entry) error {
	select {
	case s.entries <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Entries() <-chan Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Append(_ context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.writer.Write(data)
	return err
}

// MemorySink keeps every entry in process memory.
type MemorySink struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return nil
}

// Entries returns a copy of everything appended so far, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemorySink) Recent(_ context.Context, identifier string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for i := len(s.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.entries[i].Identifier == identifier {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *MemorySink) Count(_ context.Context, identifier string) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	for _, e := range s.entries {
		if e.Identifier != identifier {
			continue
		}
		c.Total++
		if e.Success {
			c.Successful++
		}
	}
	c.Failed = c.Total - c.Successful
	return c, nil
}
