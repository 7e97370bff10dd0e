package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type failingSink struct{ err error }

func (s failingSink) Append(context.Context, Entry) error { return s.err }

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Entry
}

func (s *blockingSink) Append(_ context.Context, e Entry) error {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
	return nil
}

func TestRecorderStampsEntries(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	sink := NewMemorySink()
	r := NewRecorder(sink, func() time.Time { return fixed }, nil)

	r.Record(context.Background(), Entry{Identifier: "alice@example.com", Success: true, IP: "10.0.0.1"})

	entries := sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.Timestamp.Equal(fixed) || e.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not stamped in UTC: %v", e.Timestamp)
	}
	if e.ID == "" || e.Method != MethodPassword {
		t.Fatalf("missing id or default method: %+v", e)
	}
}

func TestRecorderSwallowsSinkFailure(t *testing.T) {
	var (
		reported []error
		mu       sync.Mutex
	)
	r := NewRecorder(failingSink{err: errors.New("db down")}, nil, func(_ Entry, err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	})

	r.Record(context.Background(), Entry{Identifier: "x"})

	if len(reported) != 1 || reported[0].Error() != "db down" {
		t.Fatalf("expected failure to be reported once, got %v", reported)
	}
}

func TestEntryIDsSortByTime(t *testing.T) {
	base := time.Now()
	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, NewEntryID(base.Add(time.Duration(i)*time.Millisecond)))
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatal("ULIDs are not monotonic")
	}
}

func TestMemorySinkRecent(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()
	for i, id := range []string{"a", "b", "a", "a"} {
		_ = s.Append(ctx, Entry{Identifier: id, Reason: string(rune('0' + i))})
	}

	got, _ := s.Recent(ctx, "a", 2)
	if len(got) != 2 || got[0].Reason != "3" || got[1].Reason != "2" {
		t.Fatalf("unexpected recent entries: %+v", got)
	}
	all, _ := s.Recent(ctx, "a", 0)
	if len(all) != 3 {
		t.Fatalf("limit 0 should return all, got %d", len(all))
	}
}

func TestMemorySinkCount(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()
	for _, e := range []Entry{
		{Identifier: "a", Success: true},
		{Identifier: "a"},
		{Identifier: "b", Success: true},
		{Identifier: "a"},
	} {
		_ = s.Append(ctx, e)
	}

	got, err := s.Count(ctx, "a")
	if err != nil || got != (Counts{Total: 3, Successful: 1, Failed: 2}) {
		t.Fatalf("Count: %+v %v", got, err)
	}
	if none, _ := s.Count(ctx, "nobody"); none != (Counts{}) {
		t.Fatalf("expected zero counts, got %+v", none)
	}

	window, _ := s.Recent(ctx, "a", 2)
	if c := Tally(window); c != (Counts{Total: 2, Failed: 2}) {
		t.Fatalf("Tally: %+v", c)
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	if err := s.Append(context.Background(), Entry{ID: "01", Identifier: "bob", Success: false, Reason: "password_mismatch"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid JSON line %q: %v", line, err)
	}
	if decoded["identifier"] != "bob" || decoded["reason"] != "password_mismatch" {
		t.Fatalf("unexpected payload: %v", decoded)
	}
}

func TestChannelSinkHonoursContext(t *testing.T) {
	s := NewChannelSink(1)
	if err := s.Append(context.Background(), Entry{Identifier: "1"}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Append(ctx, Entry{Identifier: "2"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e := <-s.Entries(); e.Identifier != "1" {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	inner := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{BufferSize: 1, DropIfFull: true}, inner, nil)

	ctx := context.Background()
	// First entry is picked up by the worker and blocks there.
	_ = d.Append(ctx, Entry{Identifier: "1"})
	deadline := time.Now().Add(time.Second)
	for len(d.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := d.Append(ctx, Entry{Identifier: "2"}); err != nil {
		t.Fatalf("buffered append: %v", err)
	}
	if err := d.Append(ctx, Entry{Identifier: "3"}); !errors.Is(err, ErrDropped) {
		t.Fatalf("expected ErrDropped, got %v", err)
	}
	if d.Dropped() != 1 {
		t.Fatalf("dropped = %d", d.Dropped())
	}

	close(inner.release)
	d.Close()

	if len(inner.got) != 2 || inner.got[0].Identifier != "1" || inner.got[1].Identifier != "2" {
		t.Fatalf("expected ordered delivery of 1 and 2, got %+v", inner.got)
	}
	if err := d.Append(ctx, Entry{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
	d.Close()
}

func TestDispatcherCloseKeepsAcceptedEntries(t *testing.T) {
	for _, dropIfFull := range []bool{false, true} {
		mem := NewMemorySink()
		d := NewDispatcher(DispatcherConfig{BufferSize: 8, DropIfFull: dropIfFull}, mem, nil)

		var (
			wg       sync.WaitGroup
			accepted atomic.Int64
			rejected atomic.Int64
		)
		start := make(chan struct{})
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < 200; i++ {
					switch err := d.Append(context.Background(), Entry{Identifier: "c"}); {
					case err == nil:
						accepted.Add(1)
					case errors.Is(err, ErrClosed), errors.Is(err, ErrDropped):
						rejected.Add(1)
					default:
						t.Errorf("unexpected append error: %v", err)
					}
				}
			}()
		}
		close(start)
		time.Sleep(time.Millisecond)
		d.Close()
		wg.Wait()

		if got := int64(len(mem.Entries())); got != accepted.Load() {
			t.Fatalf("dropIfFull=%v: %d accepted but %d delivered", dropIfFull, accepted.Load(), got)
		}
		if accepted.Load()+rejected.Load() != 8*200 {
			t.Fatalf("dropIfFull=%v: lost track of appends", dropIfFull)
		}
	}
}

func TestDispatcherReportsInnerErrors(t *testing.T) {
	var (
		mu     sync.Mutex
		failed []string
	)
	d := NewDispatcher(DispatcherConfig{BufferSize: 4}, failingSink{err: errors.New("boom")}, func(e Entry, _ error) {
		mu.Lock()
		failed = append(failed, e.Identifier)
		mu.Unlock()
	})
	_ = d.Append(context.Background(), Entry{Identifier: "a"})
	_ = d.Append(context.Background(), Entry{Identifier: "b"})
	d.Close()

	if len(failed) != 2 {
		t.Fatalf("expected two reported failures, got %v", failed)
	}
}

func TestDispatcherRecentDelegates(t *testing.T) {
	mem := NewMemorySink()
	d := NewDispatcher(DispatcherConfig{BufferSize: 4}, mem, nil)
	_ = d.Append(context.Background(), Entry{Identifier: "z"})
	d.Close()

	got, err := d.Recent(context.Background(), "z", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("Recent: %v %v", got, err)
	}

	d2 := NewDispatcher(DispatcherConfig{}, NoOpSink{}, nil)
	defer d2.Close()
	if _, err := d2.Recent(context.Background(), "z", 1); err == nil {
		t.Fatal("expected error for sink without history")
	}
}
