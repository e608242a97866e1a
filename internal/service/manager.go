// internal/service/manager.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/runner"
	"github.com/xkilldash9x/handoff/internal/script"
	"github.com/xkilldash9x/handoff/internal/store"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy is returned when another call is already driving the session.
	ErrSessionBusy = errors.New("session is busy")
	// ErrResetQueued is returned by Reset when a run is in flight. The run stops
	// before its next step and the reset is applied as soon as the current step
	// returns.
	ErrResetQueued = errors.New("reset queued behind the running step")
)

// session pairs a run state with the document it executes. run serializes
// controller calls; mu guards the snapshot read by Get.
type session struct {
	run   sync.Mutex
	state *runner.RunState

	mu           sync.Mutex
	snapshot     store.SessionRecord
	resetPending bool
}

// queueReset marks the session for reset and stops its drain before the next step.
func (s *session) queueReset() {
	s.mu.Lock()
	s.resetPending = true
	s.mu.Unlock()
	s.state.Interrupt()
}

func (s *session) takeReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.resetPending
	s.resetPending = false
	return pending
}

func (s *session) view() store.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// capture copies the run state into the snapshot. Callers hold s.run.
func (s *session) capture() store.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Cursor = s.state.Cursor
	s.snapshot.Log = s.state.Log
	s.snapshot.Waiting = s.state.Waiting
	s.snapshot.WaitMessage = s.state.WaitMessage
	s.snapshot.Status = string(s.state.Status)
	return s.snapshot
}

// Manager owns every live session. Each session has its own RunState and
// resources; calls on one session never block another.
type Manager struct {
	controller *runner.Controller
	store      store.SessionStore
	metrics    *Metrics
	logger     *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*session

	subsMu sync.Mutex
	subs   map[string]map[chan store.SessionRecord]struct{}
}

// subscriberBuffer bounds how far a slow subscriber may lag before updates are dropped.
const subscriberBuffer = 16

// NewManager creates a Manager. Step metrics are wired into the controller it builds.
func NewManager(factory runner.ResourceFactory, browserOpts browser.Options, st store.SessionStore, metrics *Metrics, logger *zap.Logger, opts ...runner.Option) *Manager {
	baseCtx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:    st,
		metrics:  metrics,
		logger:   logger.Named("sessions"),
		baseCtx:  baseCtx,
		cancel:   cancel,
		sessions: make(map[string]*session),
		subs:     make(map[string]map[chan store.SessionRecord]struct{}),
	}
	opts = append(opts, runner.WithStepObserver(m.observeStep))
	m.controller = runner.NewController(factory, browserOpts, logger, opts...)
	return m
}

// Subscribe streams snapshots of session id after every step and every
// completed call. The channel is closed by cancel or when the session is deleted.
func (m *Manager) Subscribe(id string) (<-chan store.SessionRecord, func()) {
	ch := make(chan store.SessionRecord, subscriberBuffer)
	m.subsMu.Lock()
	if m.subs[id] == nil {
		m.subs[id] = make(map[chan store.SessionRecord]struct{})
	}
	m.subs[id][ch] = struct{}{}
	m.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			if _, ok := m.subs[id][ch]; ok {
				delete(m.subs[id], ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (m *Manager) publish(rec store.SessionRecord) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for ch := range m.subs[rec.ID] {
		select {
		case ch <- rec:
		default:
			m.logger.Debug("Subscriber lagging, dropping update.", zap.String("session_id", rec.ID))
		}
	}
}

func (m *Manager) closeSubscribers(id string) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for ch := range m.subs[id] {
		close(ch)
	}
	delete(m.subs, id)
}

// observeStep runs on the goroutine driving the session, which already holds its run lock.
func (m *Manager) observeStep(o runner.StepOutcome) {
	if m.metrics != nil {
		m.metrics.ObserveStep(o)
	}
	m.mu.RLock()
	s, ok := m.sessions[o.SessionID]
	m.mu.RUnlock()
	if ok {
		m.publish(s.capture())
	}
}

// Create validates document and registers a new idle session.
func (m *Manager) Create(ctx context.Context, document, prompt string) (store.SessionRecord, error) {
	if _, err := script.Parse([]byte(document)); err != nil {
		return store.SessionRecord{}, err
	}

	id := uuid.NewString()
	s := &session{state: runner.NewRunState(id)}
	s.snapshot = store.SessionRecord{ID: id, Script: document, Prompt: prompt}
	rec := s.capture()
	if err := m.store.Save(ctx, &rec); err != nil {
		return store.SessionRecord{}, fmt.Errorf("persist session: %w", err)
	}
	s.mu.Lock()
	s.snapshot.CreatedAt, s.snapshot.UpdatedAt = rec.CreatedAt, rec.UpdatedAt
	s.mu.Unlock()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.updateGauge()

	m.logger.Info("Session created.", zap.String("session_id", id))
	return rec, nil
}

// Get returns the latest snapshot of a session.
func (m *Manager) Get(ctx context.Context, id string) (store.SessionRecord, error) {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return store.SessionRecord{}, err
	}
	return s.view(), nil
}

// List returns every persisted session.
func (m *Manager) List(ctx context.Context) ([]store.SessionRecord, error) {
	recs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range recs {
		if s, ok := m.sessions[recs[i].ID]; ok {
			recs[i] = s.view()
		}
	}
	return recs, nil
}

// Update replaces the script and prompt of a session. The cursor is kept.
func (m *Manager) Update(ctx context.Context, id, document, prompt string) (store.SessionRecord, error) {
	if _, err := script.Parse([]byte(document)); err != nil {
		return store.SessionRecord{}, err
	}
	return m.with(ctx, id, func(s *session) error {
		s.mu.Lock()
		s.snapshot.Script = document
		s.snapshot.Prompt = prompt
		s.mu.Unlock()
		return nil
	})
}

// Start runs the session until it pauses, completes or aborts.
func (m *Manager) Start(ctx context.Context, id string) (store.SessionRecord, error) {
	return m.drive(ctx, id, m.controller.Start)
}

// Resume continues a paused session.
func (m *Manager) Resume(ctx context.Context, id string) (store.SessionRecord, error) {
	return m.drive(ctx, id, m.controller.Resume)
}

// Reset returns the session to idle and releases its resources. While another
// call holds the session, the reset is queued and ErrResetQueued is returned;
// the result of the step in flight is discarded.
func (m *Manager) Reset(ctx context.Context, id string) (store.SessionRecord, error) {
	rec, err := m.with(ctx, id, func(s *session) error {
		m.reset(s)
		return nil
	})
	if !errors.Is(err, ErrSessionBusy) {
		return rec, err
	}

	s, err := m.lookup(ctx, id)
	if err != nil {
		return store.SessionRecord{}, err
	}
	s.queueReset()
	m.logger.Info("Reset queued behind in-flight call.", zap.String("session_id", id))
	go m.applyQueuedReset(s)
	return rec, ErrResetQueued
}

// applyQueuedReset waits for the session's current holder and applies the
// reset if that holder has not already done so.
func (m *Manager) applyQueuedReset(s *session) {
	s.run.Lock()
	defer s.run.Unlock()
	if !s.takeReset() {
		return
	}
	m.reset(s)
	if _, err := m.commit(m.baseCtx, s); err != nil {
		m.logger.Warn("Failed to persist queued reset.", zap.String("session_id", s.state.SessionID), zap.Error(err))
	}
}

func (m *Manager) reset(s *session) {
	s.takeReset()
	if err := m.controller.Reset(s.state); err != nil {
		m.logger.Warn("Resources not released cleanly on reset.", zap.String("session_id", s.state.SessionID), zap.Error(err))
	}
}

// Delete releases a session's resources and forgets it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !s.run.TryLock() {
		return ErrSessionBusy
	}
	defer s.run.Unlock()

	if err := s.state.Resources.Release(); err != nil {
		m.logger.Warn("Resources not released cleanly on delete.", zap.String("session_id", id), zap.Error(err))
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.updateGauge()
	m.closeSubscribers(id)

	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Shutdown cancels in-flight runs between steps and releases every session's resources.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.RLock()
	live := make(map[string]*session, len(m.sessions))
	for id, s := range m.sessions {
		live[id] = s
	}
	m.mu.RUnlock()

	for id, s := range live {
		s.run.Lock()
		if err := s.state.Resources.Release(); err != nil {
			m.logger.Warn("Failed to release session resources.", zap.String("session_id", id), zap.Error(err))
		}
		s.state.Resources = nil
		s.run.Unlock()
	}
}

type controllerCall func(ctx context.Context, state *runner.RunState, document []byte, prompt string) error

func (m *Manager) drive(ctx context.Context, id string, call controllerCall) (store.SessionRecord, error) {
	var runErr error
	rec, err := m.with(ctx, id, func(s *session) error {
		snap := s.view()
		s.mu.Lock()
		s.snapshot.Status = string(runner.StatusRunning)
		s.mu.Unlock()

		// Runs outlive the request that triggered them; only Shutdown interrupts them.
		runErr = call(m.baseCtx, s.state, []byte(snap.Script), snap.Prompt)
		if m.metrics != nil {
			m.metrics.ObserveRun(s.state.Status)
		}
		return nil
	})
	if err != nil {
		return rec, err
	}
	return rec, runErr
}

// with runs fn under the session's run lock, then snapshots and persists the state.
func (m *Manager) with(ctx context.Context, id string, fn func(*session) error) (store.SessionRecord, error) {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return store.SessionRecord{}, err
	}
	if !s.run.TryLock() {
		return s.view(), ErrSessionBusy
	}
	defer s.run.Unlock()

	if err := fn(s); err != nil {
		return s.view(), err
	}
	if s.takeReset() {
		m.reset(s)
	}
	return m.commit(ctx, s)
}

// commit snapshots, publishes and persists the state. Callers hold s.run.
func (m *Manager) commit(ctx context.Context, s *session) (store.SessionRecord, error) {
	rec := s.capture()
	m.publish(rec)
	if err := m.store.Save(context.WithoutCancel(ctx), &rec); err != nil {
		return rec, fmt.Errorf("persist session: %w", err)
	}
	return rec, nil
}

// lookup finds a live session, restoring it from the store when needed.
func (m *Manager) lookup(ctx context.Context, id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	rec, err := m.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	status := runner.Status(rec.Status)
	if status == runner.StatusRunning {
		// The process stopped mid-run.
		status = runner.StatusAborted
		rec.Status = string(status)
	}
	restored := &session{
		state: &runner.RunState{
			SessionID:   rec.ID,
			Cursor:      rec.Cursor,
			Log:         rec.Log,
			Waiting:     rec.Waiting,
			WaitMessage: rec.WaitMessage,
			Status:      status,
		},
		snapshot: *rec,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = restored
	m.updateGaugeLocked()
	m.logger.Info("Session restored from store.", zap.String("session_id", id), zap.Int("cursor", rec.Cursor))
	return restored, nil
}

func (m *Manager) updateGauge() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.updateGaugeLocked()
}

func (m *Manager) updateGaugeLocked() {
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
}
