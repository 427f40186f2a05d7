package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pithecene-io/xray/log"
	"github.com/pithecene-io/xray/metrics"
	"github.com/pithecene-io/xray/types"
)

var (
	// ErrEmptyCompany is returned by Start for a blank company name.
	ErrEmptyCompany = errors.New("company name is empty")
	// ErrSessionClosed is returned by Start after Close.
	ErrSessionClosed = errors.New("session closed")
)

// DefaultUpdateBuffer is the update channel capacity.
const DefaultUpdateBuffer = 64

// Update is one message from the session to its consumer.
type Update struct {
	QueryID string
	Company string
	State   types.AggregateState
	// Done is set on the last update of a query.
	Done bool
	// Result is set when Done.
	Result *QueryResult
}

// Session runs at most one query at a time.
//
// Starting a query cancels the in-flight one and waits for its goroutine
// to exit. Once Start returns, no update of an abandoned query is
// delivered. Each query gets a fresh engine, so splitter state and task
// records never carry over.
type Session struct {
	opener    Opener
	logger    *log.Logger
	collector *metrics.Collector
	updates   chan Update

	defaultTaskCount int

	mu      sync.Mutex
	current *query
	closed  bool
}

type query struct {
	id      string
	cancel  context.CancelFunc
	abandon chan struct{}
	done    chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDefaultTaskCount sets the expected task count each query starts
// with, before its start event.
func WithDefaultTaskCount(n int) SessionOption {
	return func(s *Session) {
		s.defaultTaskCount = n
	}
}

// NewSession creates a session. logger and collector may be nil.
func NewSession(opener Opener, logger *log.Logger, collector *metrics.Collector, opts ...SessionOption) *Session {
	s := &Session{
		opener:    opener,
		logger:    logger,
		collector: collector,
		updates:   make(chan Update, DefaultUpdateBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Updates returns the channel updates are delivered on.
// It is closed by Close.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Start begins a query for company and returns its query id.
// The company name is trimmed; a blank name is rejected.
func (s *Session) Start(ctx context.Context, company string) (string, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return "", ErrEmptyCompany
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSessionClosed
	}
	s.stopLocked()

	qctx, cancel := context.WithCancel(ctx)
	q := &query{
		id:      uuid.NewString(),
		cancel:  cancel,
		abandon: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.current = q

	go s.run(qctx, q, company)
	return q.id, nil
}

// Cancel cancels the in-flight query, if any. Its final update, with a
// canceled outcome, is still delivered.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.cancel()
	}
}

// CurrentID returns the id of the most recently started query.
func (s *Session) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.id
}

// Wait blocks until the current query's goroutine has exited.
func (s *Session) Wait() {
	s.mu.Lock()
	q := s.current
	s.mu.Unlock()
	if q != nil {
		<-q.done
	}
}

// Close abandons the in-flight query and closes the update channel.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()
	s.closed = true
	close(s.updates)
}

// stopLocked abandons the current query, waits for it to exit and drops
// any of its updates still buffered. Caller holds s.mu.
func (s *Session) stopLocked() {
	q := s.current
	if q == nil {
		return
	}
	q.cancel()
	close(q.abandon)
	<-q.done
	s.current = nil

	for {
		select {
		case <-s.updates:
		default:
			return
		}
	}
}

func (s *Session) run(ctx context.Context, q *query, company string) {
	defer close(q.done)
	defer q.cancel()

	send := func(u Update) bool {
		select {
		case <-q.abandon:
			return false
		default:
		}
		select {
		case s.updates <- u:
			return true
		case <-q.abandon:
			return false
		}
	}

	result := RunQuery(ctx, QueryConfig{
		QueryID:   q.id,
		Company:   company,
		Opener:    s.opener,
		Logger:    s.logger,
		Collector: s.collector,

		DefaultTaskCount: s.defaultTaskCount,
	}, func(state types.AggregateState) {
		send(Update{QueryID: q.id, Company: company, State: state})
	})

	send(Update{
		QueryID: q.id,
		Company: company,
		State:   result.State,
		Done:    true,
		Result:  &result,
	})
}
