// Package navigator manages the lifecycle of navigations: planning
// candidate routes, starting a tracking session, feeding it location fixes
// and fetching new routes in the background when the tracker asks for a
// reroute.
package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
)

// RouteFetcher is the routing collaborator.
type RouteFetcher interface {
	FetchRoutes(ctx context.Context, origin, destination geo.Coordinate, mode nav.TransportMode) ([]nav.Route, error)
}

// Config holds the navigator timers.
type Config struct {
	BrowseRefresh time.Duration `koanf:"browse_refresh"` // candidate re-fetch while browsing
	ETARefresh    time.Duration `koanf:"eta_refresh"`    // ETA recompute while navigating
	FetchTimeout  time.Duration `koanf:"fetch_timeout"`
}

// DefaultConfig returns the standard timers.
func DefaultConfig() Config {
	return Config{
		BrowseRefresh: 60 * time.Second,
		ETARefresh:    20 * time.Second,
		FetchTimeout:  30 * time.Second,
	}
}

// navigation is one planned or active navigation. All fields are guarded by mu.
type navigation struct {
	mu sync.Mutex

	id          string
	state       State
	mode        nav.TransportMode
	origin      geo.Coordinate
	destination geo.Coordinate
	candidates  []nav.Route  // browsing only
	session     *nav.Session // navigating and arrived
	last        *nav.Result
	lastError   string
	updatedAt   time.Time
	ended       bool

	// fetchSeq tags every background fetch; only the newest may be applied.
	fetchSeq    uint64
	fetchCancel context.CancelFunc
	rerouting   bool

	// timerGen invalidates ticks from timers that were replaced or stopped.
	timerGen uint64
	timer    *time.Timer
}

// Manager owns every navigation. It is safe for concurrent use; updates
// to a single navigation are serialized.
type Manager struct {
	fetcher RouteFetcher
	tracker *nav.Tracker
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	navs map[string]*navigation
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now for timestamps and ETA refreshes.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager that fetches routes with fetcher and
// tracks sessions with tracker.
func NewManager(fetcher RouteFetcher, tracker *nav.Tracker, cfg Config, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		fetcher: fetcher,
		tracker: tracker,
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		navs:    make(map[string]*navigation),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "navigator")
	return m
}

// Close ends every navigation and waits for background fetches to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	navs := m.navs
	m.navs = make(map[string]*navigation)
	m.mu.Unlock()

	for _, n := range navs {
		n.mu.Lock()
		m.shutdown(n)
		n.mu.Unlock()
	}
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) get(id string) (*navigation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.navs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

// fetch asks the routing collaborator for candidates. Failures are logged
// and reported as zero routes alongside the error.
func (m *Manager) fetch(ctx context.Context, origin, destination geo.Coordinate, mode nav.TransportMode) ([]nav.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	routes, err := m.fetcher.FetchRoutes(ctx, origin, destination, mode)
	if err != nil {
		m.logger.Warn("route fetch failed",
			"origin", origin.String(),
			"destination", destination.String(),
			"mode", mode,
			"error", err)
		return nil, err
	}
	return routes, nil
}

// Plan fetches candidate routes and registers a new navigation in the
// browsing state. A failed fetch still creates the navigation, with no
// candidates and the error recorded; the browse refresh retries it.
func (m *Manager) Plan(ctx context.Context, origin, destination geo.Coordinate, mode nav.TransportMode) (Snapshot, error) {
	if !origin.Valid() || !destination.Valid() {
		return Snapshot{}, fmt.Errorf("invalid coordinates %s -> %s", origin, destination)
	}

	routes, err := m.fetch(ctx, origin, destination, mode)
	if ctx.Err() != nil {
		return Snapshot{}, ctx.Err()
	}

	n := &navigation{
		id:          uuid.NewString(),
		state:       StateBrowsing,
		mode:        mode,
		origin:      origin,
		destination: destination,
		candidates:  routes,
		updatedAt:   m.now(),
	}
	if err != nil {
		n.lastError = err.Error()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	m.mu.Lock()
	m.navs[n.id] = n
	m.mu.Unlock()

	m.scheduleRefresh(n)
	m.logger.Info("planned navigation", "id", n.id, "mode", mode, "routes", len(routes))
	return m.snapshot(n), nil
}

// SetMode switches the transport mode and re-fetches routes for it. While
// browsing the candidates are replaced; while navigating the new routes are
// applied to the session from the last known position.
func (m *Manager) SetMode(ctx context.Context, id string, mode nav.TransportMode) (Snapshot, error) {
	n, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	n.mu.Lock()
	if n.state == StateArrived {
		defer n.mu.Unlock()
		return m.snapshot(n), nil
	}
	origin := n.origin
	if n.last != nil && len(n.last.TrimmedPath) > 0 {
		origin = n.last.TrimmedPath[0]
	}
	destination := n.destination
	n.fetchSeq++
	seq := n.fetchSeq
	if n.fetchCancel != nil {
		n.fetchCancel()
		n.fetchCancel = nil
	}
	n.rerouting = false
	n.mode = mode
	if n.session != nil {
		n.session.Mode = mode
	}
	n.mu.Unlock()

	routes, fetchErr := m.fetch(ctx, origin, destination, mode)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ended {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if seq == n.fetchSeq {
		m.applyFetch(n, routes, fetchErr)
		if fetchErr != nil && n.state == StateBrowsing {
			// Candidates for the previous mode no longer apply.
			n.candidates = nil
		}
		m.scheduleRefresh(n)
	}
	m.logger.Info("changed transport mode", "id", id, "mode", mode, "routes", len(routes))
	return m.snapshot(n), nil
}

// Start begins tracking along candidate routeIndex.
func (m *Manager) Start(id string, routeIndex int) (Snapshot, error) {
	n, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateBrowsing {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrAlreadyStarted, id)
	}
	if len(n.candidates) == 0 {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoRoutes, id)
	}
	if routeIndex < 0 || routeIndex >= len(n.candidates) {
		return Snapshot{}, fmt.Errorf("%w: %d (have %d)", ErrInvalidRouteIndex, routeIndex, len(n.candidates))
	}

	// Any in-flight browse refresh belongs to the previous state.
	n.fetchSeq++
	if n.fetchCancel != nil {
		n.fetchCancel()
		n.fetchCancel = nil
	}

	n.session = nav.StartSession(n.candidates, n.destination, routeIndex, n.mode)
	n.candidates = nil
	n.state = StateNavigating
	n.updatedAt = m.now()
	m.scheduleRefresh(n)

	m.logger.Info("started navigation", "id", id, "route", routeIndex)
	return m.snapshot(n), nil
}

// Update processes one location fix. Reroute requests raised by the
// tracker are served in the background; arrival stops all timers.
func (m *Manager) Update(id string, fix nav.Fix) (nav.Result, error) {
	n, err := m.get(id)
	if err != nil {
		return nav.Result{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.session == nil {
		return nav.Result{}, fmt.Errorf("%w: %s", ErrNotNavigating, id)
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = m.now()
	}

	res := m.tracker.Process(n.session, fix)
	n.last = &res
	n.updatedAt = fix.Timestamp

	switch {
	case res.ArrivedNow:
		n.state = StateArrived
		m.stopBackground(n)
		m.logger.Info("navigation arrived", "id", id)
	case res.RerouteRequested:
		m.reroute(n, fix.Coordinate)
	}
	return res, nil
}

// Status returns a snapshot of the navigation.
func (m *Manager) Status(id string) (Snapshot, error) {
	n, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return m.snapshot(n), nil
}

// List returns snapshots of every navigation.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	navs := make([]*navigation, 0, len(m.navs))
	for _, n := range m.navs {
		navs = append(navs, n)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(navs))
	for _, n := range navs {
		n.mu.Lock()
		out = append(out, m.snapshot(n))
		n.mu.Unlock()
	}
	return out
}

// End cancels the navigation's timers and fetches and forgets it.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	n, ok := m.navs[id]
	delete(m.navs, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	m.shutdown(n)
	m.logger.Info("ended navigation", "id", id)
	return nil
}

// shutdown must be called with n.mu held.
func (m *Manager) shutdown(n *navigation) {
	m.stopBackground(n)
	if n.session != nil {
		n.session.EndSession()
	}
	n.ended = true
}

// stopBackground cancels the timer and any fetch. Called with n.mu held.
func (m *Manager) stopBackground(n *navigation) {
	n.timerGen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.fetchSeq++
	if n.fetchCancel != nil {
		n.fetchCancel()
		n.fetchCancel = nil
	}
	n.rerouting = false
}

// reroute starts a background fetch from pos, superseding any fetch still
// in flight. Called with n.mu held.
func (m *Manager) reroute(n *navigation, pos geo.Coordinate) {
	n.fetchSeq++
	seq := n.fetchSeq
	if n.fetchCancel != nil {
		n.fetchCancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	n.fetchCancel = cancel
	n.rerouting = true

	destination, mode := n.destination, n.session.Mode
	m.logger.Info("rerouting", "id", n.id, "from", pos.String(), "seq", seq)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		routes, err := m.fetch(ctx, pos, destination, mode)

		n.mu.Lock()
		defer n.mu.Unlock()
		if n.ended || seq != n.fetchSeq || n.state != StateNavigating {
			m.logger.Debug("dropping stale reroute", "id", n.id, "seq", seq)
			return
		}
		n.fetchCancel = nil
		n.rerouting = false
		m.applyFetch(n, routes, err)
	}()
}

// applyFetch installs fetched routes. Called with n.mu held.
func (m *Manager) applyFetch(n *navigation, routes []nav.Route, err error) {
	if err != nil {
		n.lastError = err.Error()
		return
	}
	n.lastError = ""
	n.updatedAt = m.now()
	switch n.state {
	case StateBrowsing:
		n.candidates = routes
	case StateNavigating:
		if m.tracker.ApplyRoutes(n.session, routes) {
			m.logger.Info("applied routes", "id", n.id, "routes", len(routes))
		}
	}
}

// scheduleRefresh arms the single-shot timer for the current state and
// invalidates any previous one. Called with n.mu held.
func (m *Manager) scheduleRefresh(n *navigation) {
	n.timerGen++
	gen := n.timerGen
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}

	var interval time.Duration
	switch n.state {
	case StateBrowsing:
		interval = m.cfg.BrowseRefresh
	case StateNavigating:
		interval = m.cfg.ETARefresh
	}
	if interval <= 0 || n.ended {
		return
	}
	n.timer = time.AfterFunc(interval, func() { m.refresh(n, gen) })
}

func (m *Manager) refresh(n *navigation, gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ended || gen != n.timerGen {
		return
	}

	switch n.state {
	case StateNavigating:
		if n.last != nil {
			res := m.tracker.RefreshETA(n.session, *n.last, m.now())
			n.last = &res
		}
	case StateBrowsing:
		n.fetchSeq++
		seq := n.fetchSeq
		origin, destination, mode := n.origin, n.destination, n.mode

		n.mu.Unlock()
		routes, err := m.fetch(m.ctx, origin, destination, mode)
		n.mu.Lock()

		if n.ended || gen != n.timerGen || seq != n.fetchSeq {
			return
		}
		if len(routes) > 0 || err != nil {
			m.applyFetch(n, routes, err)
		}
		m.logger.Debug("refreshed candidates", "id", n.id, "routes", len(n.candidates))
	default:
		return
	}
	m.scheduleRefresh(n)
}

// snapshot copies the navigation. Called with n.mu held.
func (m *Manager) snapshot(n *navigation) Snapshot {
	s := Snapshot{
		ID:          n.id,
		State:       n.state,
		Mode:        n.mode,
		Origin:      n.origin,
		Destination: n.destination,
		Rerouting:   n.rerouting,
		LastError:   n.lastError,
		UpdatedAt:   n.updatedAt,
	}
	if n.session != nil {
		s.Routes = append([]nav.Route(nil), n.session.Routes()...)
		s.ActiveRouteIndex = n.session.ActiveRouteIndex
	} else {
		s.Routes = append([]nav.Route(nil), n.candidates...)
	}
	s.Summaries = summarize(s.Routes, s.ActiveRouteIndex)
	if n.last != nil {
		last := *n.last
		s.Last = &last
	}
	return s
}
