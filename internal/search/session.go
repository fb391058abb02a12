// Package search drives the interactive search workflow: submit a query to
// the vendor, poll the resulting job on a fixed timer until it reaches a
// terminal status, and hold the display state (results, pagination, errors)
// for whoever is rendering it.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-finder/internal/model"
	"github.com/sells-group/lead-finder/pkg/outscraper"
)

// State identifies where a session is in the submit/poll lifecycle.
type State string

const (
	StateIdle        State = "idle"
	StateSubmitting  State = "submitting"
	StatePolling     State = "polling"
	StateDoneSuccess State = "done_success"
	StateDoneFailure State = "done_failure"
	StateErrored     State = "errored"
)

// Terminal reports whether the state ends a search cycle.
func (s State) Terminal() bool {
	switch s {
	case StateDoneSuccess, StateDoneFailure, StateErrored:
		return true
	}
	return false
}

// ErrEmptyQuery is returned by Submit before any network call is made.
var ErrEmptyQuery = eris.New("search: query is required")

// Session owns one search cycle at a time. A new Submit supersedes the
// previous cycle: its timer is disarmed and any still in-flight poll response
// is discarded by generation check rather than aborted.
type Session struct {
	client   outscraper.Client
	defaults outscraper.SearchRequest
	interval time.Duration

	mu        sync.Mutex
	state     State
	gen       int
	requestID string
	status    string
	errMsg    string
	pager     *Paginator
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithInterval overrides the fixed polling interval.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		s.interval = d
	}
}

// WithPageSize overrides the result page size.
func WithPageSize(n int) Option {
	return func(s *Session) {
		s.pager = NewPaginator(nil, n)
	}
}

// NewSession creates an idle session. The defaults' query field is ignored;
// each Submit supplies its own query.
func NewSession(client outscraper.Client, defaults outscraper.SearchRequest, opts ...Option) *Session {
	s := &Session{
		client:   client,
		defaults: defaults,
		interval: 10 * time.Second,
		state:    StateIdle,
		pager:    NewPaginator(nil, DefaultPageSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot is a point-in-time copy of the session's display state.
type Snapshot struct {
	State      State
	RequestID  string
	Status     string
	Err        string
	Total      int
	Page       int
	TotalPages int
	Rows       []model.Lead
}

// Snapshot returns the current display state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.pager.Rows()
	out := make([]model.Lead, len(rows))
	copy(out, rows)
	return Snapshot{
		State:      s.state,
		RequestID:  s.requestID,
		Status:     s.status,
		Err:        s.errMsg,
		Total:      s.pager.Len(),
		Page:       s.pager.Page(),
		TotalPages: s.pager.TotalPages(),
		Rows:       out,
	}
}

// Submit starts a new search cycle, superseding any active one. An empty or
// whitespace query is rejected locally with ErrEmptyQuery and no vendor call.
func (s *Session) Submit(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		s.mu.Lock()
		s.errMsg = "Please enter a search query."
		s.mu.Unlock()
		return ErrEmptyQuery
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.stopLocked()
	s.state = StateSubmitting
	s.requestID = ""
	s.status = ""
	s.errMsg = ""
	s.pager.Reset(nil)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	req := s.defaults
	req.Query = query
	resp, err := s.client.Search(ctx, req)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil // superseded while the submit was in flight
	}
	if err != nil {
		s.state = StateErrored
		s.errMsg = "Failed to initiate search."
		close(done)
		s.mu.Unlock()
		return eris.Wrap(err, "search: submit")
	}
	s.requestID = resp.ID
	s.status = resp.Status
	s.state = StatePolling
	s.mu.Unlock()

	// One immediate poll, then the recurring timer if still pending.
	s.pollOnce(ctx, gen)

	s.mu.Lock()
	if gen == s.gen && s.state == StatePolling {
		tickCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		go s.pollLoop(tickCtx, gen)
	}
	s.mu.Unlock()

	return nil
}

// Wait blocks until the current cycle reaches a terminal state or the context
// expires. It returns immediately if no cycle has been started.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "search: wait")
	}
}

// Stop disarms the polling timer and releases any Wait callers, returning a
// non-terminal cycle to idle. In-flight requests are not aborted; their
// responses are discarded by generation check.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopLocked()
	if s.done != nil && !s.state.Terminal() {
		close(s.done)
		s.done = nil
		s.state = StateIdle
	}
}

// DeleteLocal removes a lead from the displayed set without touching the
// backend, re-clamping the current page.
func (s *Session) DeleteLocal(placeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pager.Delete(placeID)
}

// NextPage advances the result view one page.
func (s *Session) NextPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pager.Next()
}

// PrevPage steps the result view back one page.
func (s *Session) PrevPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pager.Prev()
}

func (s *Session) pollLoop(ctx context.Context, gen int) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx, gen)
			s.mu.Lock()
			live := gen == s.gen && s.state == StatePolling
			s.mu.Unlock()
			if !live {
				return
			}
		}
	}
}

func (s *Session) pollOnce(ctx context.Context, gen int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	id := s.requestID
	done := s.done
	s.mu.Unlock()

	result, err := s.client.GetRequest(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return // a newer cycle owns the session now
	}

	if err != nil {
		zap.L().Error("polling failed", zap.String("request_id", id), zap.Error(err))
		s.state = StateErrored
		s.errMsg = "An error occurred while fetching results."
		s.stopLocked()
		close(done)
		return
	}

	s.status = result.Status
	switch result.Status {
	case model.StatusSuccess:
		s.pager.Reset(projectResults(result.Data))
		s.state = StateDoneSuccess
		s.stopLocked()
		close(done)
	case model.StatusFailure:
		s.state = StateDoneFailure
		s.errMsg = "The search request failed. Please try again."
		s.stopLocked()
		close(done)
	default:
		// Still pending; the timer keeps running.
	}
}

// stopLocked disarms the timer. Callers must hold s.mu.
func (s *Session) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// projectResults derives display rows from the raw vendor payload, dropping
// candidates without a usable place id. An unexpected payload shape yields an
// empty set, mirroring how the poll handler treats it.
func projectResults(raw []byte) []model.Lead {
	candidates, ok := model.ParseCandidates(raw)
	if !ok {
		return nil
	}
	var leads []model.Lead
	for _, c := range candidates {
		if !c.HasKey() {
			continue
		}
		leads = append(leads, c.Lead())
	}
	return leads
}
