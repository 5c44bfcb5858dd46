package hackchat

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultJoinDelay spaces consecutive joins so the server does not rate
// limit the bot.
const DefaultJoinDelay = 30 * time.Second

// JoinResult reports the outcome of one join request.
type JoinResult struct {
	Channel       string
	Session       *Session // the new or already active session
	AlreadyJoined bool
	Err           error
}

// Manager keeps at most one session per channel for a single identity and
// follows invites into new channels.
type Manager struct {
	cfg     Config
	ident   Identity
	handler Handler
	pacer   *Pacer
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]struct{}
	closed   bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	joinDelay time.Duration
	clock     Clock
}

// WithJoinDelay sets the minimum gap between join attempts. Zero disables
// pacing.
func WithJoinDelay(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d >= 0 {
			o.joinDelay = d
		}
	}
}

// WithClock replaces the wall clock used for pacing.
func WithClock(c Clock) ManagerOption {
	return func(o *managerOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// NewManager creates a manager joining channels as id. Events of every
// session are passed to h after the manager has seen them.
func NewManager(cfg Config, id Identity, h Handler, opts ...ManagerOption) *Manager {
	o := managerOptions{joinDelay: DefaultJoinDelay, clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		ident:    id,
		handler:  h,
		pacer:    NewPacer(o.joinDelay, o.clock),
		log:      cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		pending:  make(map[string]struct{}),
	}
}

// JoinAll joins channels in order, one pacing slot apart. A failed join is
// reported in its result and the remaining channels are still attempted.
func (m *Manager) JoinAll(ctx context.Context, channels []string) []JoinResult {
	results := make([]JoinResult, 0, len(channels))
	for _, ch := range channels {
		r := m.Join(ctx, ch)
		if r.Err != nil {
			m.log.Warn("join failed", "channel", ch, "error", r.Err)
		}
		results = append(results, r)
	}
	return results
}

// Join waits for the next pacing slot and joins channel. A channel that is
// active or being joined is reported as AlreadyJoined without waiting.
func (m *Manager) Join(ctx context.Context, channel string) JoinResult {
	res := JoinResult{Channel: channel}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		res.Err = ErrManagerClosed
		return res
	}
	if s, ok := m.sessions[channel]; ok {
		m.mu.Unlock()
		res.Session = s
		res.AlreadyJoined = true
		return res
	}
	if _, ok := m.pending[channel]; ok {
		m.mu.Unlock()
		res.AlreadyJoined = true
		return res
	}
	m.pending[channel] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, channel)
		m.mu.Unlock()
	}()

	if err := m.pacer.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	s, err := Open(ctx, m.cfg, channel, m.ident, m.route)
	if err != nil {
		res.Err = err
		return res
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.Leave()
		res.Err = ErrManagerClosed
		return res
	}
	m.sessions[channel] = s
	m.wg.Add(1)
	m.mu.Unlock()

	go m.watch(s)

	res.Session = s
	return res
}

// JoinAsync joins channel in the background, subject to the same pacing
// as Join. The outcome is logged.
func (m *Manager) JoinAsync(channel string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		r := m.Join(m.ctx, channel)
		switch {
		case r.AlreadyJoined:
			m.log.Debug("already in channel", "channel", channel)
		case errors.Is(r.Err, context.Canceled), errors.Is(r.Err, ErrManagerClosed):
		case r.Err != nil:
			m.log.Warn("join failed", "channel", channel, "error", r.Err)
		}
	}()
}

// LeaveChannel closes the session for name and waits for its loops to
// exit. Handlers must use CloseChannel instead.
func (m *Manager) LeaveChannel(name string) error {
	s, ok := m.take(name)
	if !ok {
		return ErrNotJoined
	}
	if err := s.Leave(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

// CloseChannel closes the session for name without waiting for its loops,
// so it may be called from any session's handler. Close still waits for
// them.
func (m *Manager) CloseChannel(name string) error {
	s, ok := m.take(name)
	if !ok {
		return ErrNotJoined
	}
	if err := s.Close(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

func (m *Manager) take(name string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[name]
	delete(m.sessions, name)
	return s, ok
}

// LeaveAll closes every active session.
func (m *Manager) LeaveAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for name, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, name)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Leave()
	}
}

// Close stops pending joins, leaves every channel and waits for the
// manager's goroutines and every session's loops. It must not be called
// from a handler.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.LeaveAll()
	m.wg.Wait()
}

// Session returns the active session for name.
func (m *Manager) Session(name string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[name]
	return s, ok
}

// Channels returns the names of the active sessions, sorted.
func (m *Manager) Channels() []string {
	m.mu.Lock()
	out := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		out = append(out, name)
	}
	m.mu.Unlock()
	sort.Strings(out)
	return out
}

// --- Internal ---

// route sees every event before the consumer and follows invites.
func (m *Manager) route(s *Session, ev Event) {
	if inv, ok := ev.(Invite); ok && inv.Channel != "" {
		m.log.Info("following invite", "from", inv.From, "channel", inv.Channel)
		m.JoinAsync(inv.Channel)
	}
	if m.handler != nil {
		m.handler(s, ev)
	}
}

// watch drops a session from the active set once it ends and holds the
// manager's wait group until the session's loops are gone.
func (m *Manager) watch(s *Session) {
	defer m.wg.Done()
	<-s.Done()

	m.mu.Lock()
	if cur, ok := m.sessions[s.Channel()]; ok && cur == s {
		delete(m.sessions, s.Channel())
	}
	m.mu.Unlock()

	if err := s.Err(); err != nil {
		m.log.Warn("session ended", "channel", s.Channel(), "error", err)
	}
	<-s.Exited()
}
