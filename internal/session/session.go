package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// Status is the lifecycle phase of the session.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// User-facing failure messages.
const (
	MsgCityNotFound = "City not found"
	MsgQueryFailed  = "An error occurred"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("session closed")

// Querier performs one weather lookup. *weather.Service satisfies it.
type Querier interface {
	FetchWeather(ctx context.Context, city string) (weather.Result, error)
}

// Snapshot is a read-only copy of the session state.
// Result is set only when Status is resolved; Error only when failed.
// QueryID matches the query_id field of that query's log lines.
type Snapshot struct {
	Status    Status          `json:"status"`
	Result    *weather.Result `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	City      string          `json:"city,omitempty"`
	Seq       uint64          `json:"seq"`
	QueryID   string          `json:"queryId,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Loading reports whether a query is outstanding.
func (s Snapshot) Loading() bool { return s.Status == StatusLoading }

// Option configures a Session.
type Option func(*Session)

// WithQueryTimeout bounds every query. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session owns the state of the single active weather lookup.
// Only the most recently submitted query may settle the state.
type Session struct {
	q       Querier
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	state  Snapshot
	seq    uint64
	cancel context.CancelFunc
	closed bool

	base     context.Context
	stopBase context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a Session in the idle state.
func New(q Querier, log *logger.Logger, opts ...Option) *Session {
	if log == nil {
		log = logger.Nop()
	}
	base, stop := context.WithCancel(context.Background())
	s := &Session{
		q:        q,
		log:      log,
		now:      time.Now,
		base:     base,
		stopBase: stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = Snapshot{Status: StatusIdle, UpdatedAt: s.now().UTC()}
	return s
}

// Current returns a copy of the session state.
func (s *Session) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// LastCity returns the city of the most recently issued query.
func (s *Session) LastCity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.City
}

// Submit issues a query for city and returns immediately. The returned
// channel is closed once that query has settled, whether its outcome
// was applied or discarded. Blank input returns weather.ErrEmptyCity
// and leaves the session untouched.
func (s *Session) Submit(city string) (<-chan struct{}, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, weather.ErrEmptyCity
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(s.base, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(s.base)
	}
	s.cancel = cancel

	id := uuid.NewString()
	s.state = Snapshot{
		Status:    StatusLoading,
		City:      city,
		Seq:       seq,
		QueryID:   id,
		UpdatedAt: s.now().UTC(),
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Debugw("query_issued", "query_id", id, "seq", seq, "city", city)

	done := make(chan struct{})
	go s.run(ctx, cancel, seq, id, city, done)
	return done, nil
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, seq uint64, id, city string, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer cancel()

	res, err := s.q.FetchWeather(ctx, city)
	s.settle(seq, id, res, err)
}

func (s *Session) settle(seq uint64, id string, res weather.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq || s.closed {
		s.log.Debugw("query_discarded", "query_id", id, "seq", seq, "latest_seq", s.seq)
		return
	}
	s.cancel = nil

	next := Snapshot{
		City:      s.state.City,
		Seq:       seq,
		QueryID:   s.state.QueryID,
		UpdatedAt: s.now().UTC(),
	}
	switch {
	case err == nil:
		r := res
		next.Status = StatusResolved
		next.Result = &r
		s.log.Infow("query_resolved", "query_id", id, "seq", seq, "city", next.City)
	case errors.Is(err, weather.ErrNotFound):
		next.Status = StatusFailed
		next.Error = MsgCityNotFound
		s.log.Infow("query_failed", "query_id", id, "seq", seq, "city", next.City, "reason", "not_found")
	default:
		next.Status = StatusFailed
		next.Error = MsgQueryFailed
		s.log.Warnw("query_failed", "query_id", id, "seq", seq, "city", next.City, "err", err)
	}
	s.state = next
}

// Close cancels any in-flight query and waits for it to finish.
// Outcomes arriving after Close are discarded; the last state stays readable.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.stopBase()
	s.wg.Wait()
}

func (s Snapshot) clone() Snapshot {
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}
