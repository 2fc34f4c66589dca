package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-lookup/internal/weather"
)

type outcome struct {
	res weather.Result
	err error
}

// gatedQuerier blocks each lookup until the test releases an outcome for that city.
type gatedQuerier struct {
	ignoreCtx bool

	mu    sync.Mutex
	gates map[string]chan outcome
	calls int
}

func newGatedQuerier() *gatedQuerier {
	return &gatedQuerier{gates: make(map[string]chan outcome)}
}

func (g *gatedQuerier) gate(city string) chan outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[city]
	if !ok {
		ch = make(chan outcome, 1)
		g.gates[city] = ch
	}
	return ch
}

func (g *gatedQuerier) release(city string, res weather.Result, err error) {
	g.gate(city) <- outcome{res: res, err: err}
}

func (g *gatedQuerier) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *gatedQuerier) FetchWeather(ctx context.Context, city string) (weather.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	ch := g.gate(city)
	if g.ignoreCtx {
		o := <-ch
		return o.res, o.err
	}
	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx.Done():
		return weather.Result{}, ctx.Err()
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("query did not settle")
	}
}

func mustSubmit(t *testing.T, s *Session, city string) <-chan struct{} {
	t.Helper()
	done, err := s.Submit(city)
	if err != nil {
		t.Fatalf("Submit(%q): %v", city, err)
	}
	return done
}

func resultFor(temp float64) weather.Result {
	return weather.Result{Temperature: temp, HumidityPct: 50, Description: "clear sky", Icon: "01d"}
}

func TestNewSessionIsIdle(t *testing.T) {
	s := New(newGatedQuerier(), nil)
	defer s.Close()

	snap := s.Current()
	if snap.Status != StatusIdle || snap.Result != nil || snap.Error != "" || snap.City != "" || snap.Seq != 0 {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
}

func TestSubmitBlankCityIsNoop(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil)
	defer s.Close()

	before := s.Current()
	for _, city := range []string{"", "   ", "\t"} {
		if _, err := s.Submit(city); !errors.Is(err, weather.ErrEmptyCity) {
			t.Fatalf("Submit(%q): expected ErrEmptyCity, got %v", city, err)
		}
	}
	after := s.Current()
	if after != before {
		t.Fatalf("state changed: before %+v, after %+v", before, after)
	}
	if q.callCount() != 0 {
		t.Fatalf("querier called %d times", q.callCount())
	}
}

func TestSubmitLifecycle(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus Status
		wantError  string
	}{
		{"resolved", nil, StatusResolved, ""},
		{"not found", fmt.Errorf("%w: %q", weather.ErrNotFound, "Paris"), StatusFailed, MsgCityNotFound},
		{"query failed", fmt.Errorf("%w: boom", weather.ErrQueryFailed), StatusFailed, MsgQueryFailed},
		{"unclassified", errors.New("boom"), StatusFailed, MsgQueryFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := newGatedQuerier()
			s := New(q, nil)
			defer s.Close()

			done := mustSubmit(t, s, "  Paris ")

			loading := s.Current()
			if !loading.Loading() || loading.City != "Paris" || loading.Seq != 1 {
				t.Fatalf("expected loading snapshot for Paris, got %+v", loading)
			}

			q.release("Paris", resultFor(12), tc.err)
			waitDone(t, done)

			snap := s.Current()
			if snap.Status != tc.wantStatus || snap.Error != tc.wantError {
				t.Fatalf("got status %q error %q, want %q %q", snap.Status, snap.Error, tc.wantStatus, tc.wantError)
			}
			if tc.wantStatus == StatusResolved {
				if snap.Result == nil || snap.Result.Temperature != 12 {
					t.Fatalf("expected result, got %+v", snap.Result)
				}
			} else if snap.Result != nil {
				t.Fatalf("failed snapshot must not carry a result: %+v", snap.Result)
			}
		})
	}
}

func TestLoadingClearsPreviousOutcome(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil)
	defer s.Close()

	done := mustSubmit(t, s, "Oslo")
	q.release("Oslo", resultFor(3), nil)
	waitDone(t, done)

	mustSubmit(t, s, "Bergen")
	snap := s.Current()
	if snap.Status != StatusLoading || snap.Result != nil || snap.Error != "" {
		t.Fatalf("expected clean loading snapshot, got %+v", snap)
	}

	done = mustSubmit(t, s, "Nowhere")
	q.release("Nowhere", weather.Result{}, weather.ErrNotFound)
	waitDone(t, done)
	if s.Current().Error != MsgCityNotFound {
		t.Fatalf("expected failure, got %+v", s.Current())
	}

	mustSubmit(t, s, "Tromso")
	snap = s.Current()
	if snap.Status != StatusLoading || snap.Error != "" || snap.Result != nil {
		t.Fatalf("expected loading to clear the error, got %+v", snap)
	}
}

func TestLastIssuedWins(t *testing.T) {
	q := newGatedQuerier()
	q.ignoreCtx = true
	s := New(q, nil)
	defer s.Close()

	doneA := mustSubmit(t, s, "A")
	doneB := mustSubmit(t, s, "B")

	q.release("B", resultFor(2), nil)
	waitDone(t, doneB)

	q.release("A", resultFor(1), nil)
	waitDone(t, doneA)

	snap := s.Current()
	if snap.Status != StatusResolved || snap.City != "B" || snap.Result.Temperature != 2 || snap.Seq != 2 {
		t.Fatalf("expected B to win, got %+v", snap)
	}
}

func TestStaleSettlementDoesNotEndLoading(t *testing.T) {
	q := newGatedQuerier()
	q.ignoreCtx = true
	s := New(q, nil)
	defer s.Close()

	doneA := mustSubmit(t, s, "A")
	doneB := mustSubmit(t, s, "B")

	q.release("A", weather.Result{}, weather.ErrNotFound)
	waitDone(t, doneA)

	snap := s.Current()
	if snap.Status != StatusLoading || snap.City != "B" || snap.Error != "" {
		t.Fatalf("stale outcome leaked into state: %+v", snap)
	}

	q.release("B", resultFor(5), nil)
	waitDone(t, doneB)
	if got := s.Current(); got.Status != StatusResolved || got.City != "B" {
		t.Fatalf("expected B resolved, got %+v", got)
	}
}

func TestSupersededQueryIsCancelled(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil)
	defer s.Close()

	doneA := mustSubmit(t, s, "A")
	mustSubmit(t, s, "B")

	// A observes cancellation without ever being released.
	waitDone(t, doneA)
	if got := s.Current(); got.City != "B" || got.Status != StatusLoading {
		t.Fatalf("expected B loading, got %+v", got)
	}
}

func TestQueryTimeoutFails(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil, WithQueryTimeout(10*time.Millisecond))
	defer s.Close()

	done := mustSubmit(t, s, "Slowtown")
	waitDone(t, done)

	snap := s.Current()
	if snap.Status != StatusFailed || snap.Error != MsgQueryFailed {
		t.Fatalf("expected timeout failure, got %+v", snap)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil)
	defer s.Close()

	done := mustSubmit(t, s, "Rome")
	q.release("Rome", resultFor(20), nil)
	waitDone(t, done)

	snap := s.Current()
	snap.Result.Temperature = -100

	if got := s.Current().Result.Temperature; got != 20 {
		t.Fatalf("internal state mutated through snapshot: %v", got)
	}
}

func TestUpdatedAtUsesClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	q := newGatedQuerier()
	s := New(q, nil, WithClock(func() time.Time { return at }))
	defer s.Close()

	mustSubmit(t, s, "Lima")
	if got := s.Current().UpdatedAt; !got.Equal(at) {
		t.Fatalf("UpdatedAt = %v, want %v", got, at)
	}
}

func TestLastCity(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil)
	defer s.Close()

	if s.LastCity() != "" {
		t.Fatalf("expected no city, got %q", s.LastCity())
	}
	mustSubmit(t, s, "Kyiv")
	if s.LastCity() != "Kyiv" {
		t.Fatalf("LastCity = %q", s.LastCity())
	}
}

func TestCloseCancelsAndRejects(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil)

	mustSubmit(t, s, "Cairo")
	s.Close()

	if _, err := s.Submit("Cairo"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if got := s.Current(); got.Status != StatusLoading || got.City != "Cairo" {
		t.Fatalf("outcome after close should be discarded, got %+v", got)
	}
}

func TestSnapshotCarriesQueryID(t *testing.T) {
	q := newGatedQuerier()
	s := New(q, nil)
	defer s.Close()

	if id := s.Current().QueryID; id != "" {
		t.Fatalf("idle snapshot has query id %q", id)
	}

	mustSubmit(t, s, "Oslo")
	first := s.Current().QueryID

	done := mustSubmit(t, s, "Bergen")
	second := s.Current().QueryID
	if first == "" || second == "" || first == second {
		t.Fatalf("expected distinct query ids, got %q and %q", first, second)
	}

	q.release("Bergen", resultFor(7), nil)
	waitDone(t, done)
	if got := s.Current(); got.Status != StatusResolved || got.QueryID != second {
		t.Fatalf("resolved snapshot should keep query id %q, got %+v", second, got)
	}
}
