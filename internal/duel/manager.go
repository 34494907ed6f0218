package duel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"royal-market-bot/internal/pkg/dice"
)

// Armory reads a fighter's equipment.
type Armory interface {
	Defense(ctx context.Context, userID int64) (int, error)
	ConsumePotion(ctx context.Context, userID int64) (bool, error)
}

// Gate decides whether a subject may duel and records that they did.
type Gate interface {
	CanDuel(ctx context.Context, userID int64) error
	MarkDuel(ctx context.Context, userID int64) error
}

// Settler applies a concluded duel to the ledger and the records. It
// returns the spoils moved.
type Settler interface {
	Settle(ctx context.Context, s *Session) (int64, error)
}

// Listener is told about conclusions no participant triggered.
type Listener interface {
	ChallengeExpired(s *Session)
	TurnTimedOut(s *Session, spoils int64)
}

type nopListener struct{}

func (nopListener) ChallengeExpired(*Session)    {}
func (nopListener) TurnTimedOut(*Session, int64) {}

// Config holds duel timing and the authorization check.
type Config struct {
	AcceptTimeout time.Duration
	TurnTimeout   time.Duration
	Authorized    func(userID int64) bool
}

// Deps bundles the collaborators a Manager settles through.
type Deps struct {
	Source  dice.Source
	Armory  Armory
	Gate    Gate
	Settler Settler
}

// Turn is the result of one submitted action. Session is a snapshot taken
// after the action.
type Turn struct {
	Outcome *Outcome
	Session *Session
	Spoils  int64
}

type entry struct {
	mu      sync.Mutex
	session *Session
	timer   *time.Timer
}

// Manager owns live duel sessions. Each session is guarded by its own
// mutex; the manager mutex only guards the indexes.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	active   map[int64]string

	deps     Deps
	cfg      Config
	listener Listener
	now      func() time.Time
}

// NewManager creates a new Manager instance.
func NewManager(deps Deps, cfg Config) *Manager {
	if deps.Source == nil {
		deps.Source = dice.NewCryptoSource()
	}
	if cfg.Authorized == nil {
		cfg.Authorized = func(int64) bool { return true }
	}
	return &Manager{
		sessions: make(map[string]*entry),
		active:   make(map[int64]string),
		deps:     deps,
		cfg:      cfg,
		listener: nopListener{},
		now:      time.Now,
	}
}

// SetListener installs the receiver of timer-driven conclusions.
func (m *Manager) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	m.listener = l
}

// Challenge opens a duel from challenger to opponent in chatID.
func (m *Manager) Challenge(ctx context.Context, chatID int64, challenger, opponent Fighter) (*Session, error) {
	if challenger.ID == opponent.ID {
		return nil, ErrSelfDuel
	}
	if !m.cfg.Authorized(challenger.ID) || !m.cfg.Authorized(opponent.ID) {
		return nil, ErrDuelRoleNotAuthorized
	}
	for _, id := range []int64{challenger.ID, opponent.ID} {
		if err := m.deps.Gate.CanDuel(ctx, id); err != nil {
			return nil, err
		}
	}

	s := NewSession(uuid.NewString(), chatID, &challenger, &opponent, m.now())
	e := &entry{session: s}

	// Lock order is entry before manager everywhere.
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := m.register(e); err != nil {
		return nil, err
	}
	e.timer = m.arm(e, m.cfg.AcceptTimeout, s.Seq)

	log.Info().
		Str("duel_id", s.ID).
		Int64("challenger", challenger.ID).
		Int64("opponent", opponent.ID).
		Msg("Duel challenge issued")
	return s.Clone(), nil
}

// Accept starts the duel. Only the challenged subject may accept.
func (m *Manager) Accept(ctx context.Context, sessionID string, actor int64) (*Session, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.State != AwaitingAcceptance {
		return nil, ErrSessionConcluded
	}
	if actor != s.Opponent().ID {
		return nil, ErrNotParticipant
	}

	var defense [2]int
	for i, f := range s.Fighters {
		def, err := m.deps.Armory.Defense(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read armor: %w", err)
		}
		defense[i] = def
	}
	if err := s.Start(m.deps.Source, defense[0], defense[1]); err != nil {
		return nil, err
	}
	for _, f := range s.Fighters {
		if err := m.deps.Gate.MarkDuel(ctx, f.ID); err != nil {
			log.Error().Err(err).Int64("user_id", f.ID).Msg("Failed to mark duel cooldown")
		}
	}
	m.rearm(e, m.cfg.TurnTimeout)

	log.Info().Str("duel_id", s.ID).Int64("first", s.Current().ID).Msg("Duel started")
	return s.Clone(), nil
}

// Decline refuses a challenge. Only the challenged subject may decline.
func (m *Manager) Decline(ctx context.Context, sessionID string, actor int64) (*Session, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.session.Decline(actor); err != nil {
		return nil, err
	}
	m.release(e)
	return e.session.Clone(), nil
}

// Act submits one action for actor. A Heal without a potion fails with
// ErrNoPotion and does not use the turn.
func (m *Manager) Act(ctx context.Context, sessionID string, actor int64, action Action) (*Turn, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if err := s.CanAct(actor); err != nil {
		return nil, err
	}
	if action == Heal {
		ok, err := m.deps.Armory.ConsumePotion(ctx, actor)
		if err != nil {
			return nil, fmt.Errorf("failed to consume potion: %w", err)
		}
		if !ok {
			return nil, ErrNoPotion
		}
	}

	out, err := s.Submit(m.deps.Source, actor, action)
	if err != nil {
		return nil, err
	}

	turn := &Turn{Outcome: out}
	if out.Result != nil {
		turn.Spoils = m.settle(ctx, e)
	} else {
		m.rearm(e, m.cfg.TurnTimeout)
	}
	turn.Session = s.Clone()
	return turn, nil
}

// Get returns a snapshot of a live session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// ActiveFor returns the id of the session userID takes part in.
func (m *Manager) ActiveFor(userID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[userID]
	return id, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every timer and drops all sessions without settling them.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(m.sessions, id)
	}
	clear(m.active)
}

func (m *Manager) register(e *entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := e.session
	for _, f := range s.Fighters {
		if _, busy := m.active[f.ID]; busy {
			return ErrAlreadyInDuel
		}
	}
	m.sessions[s.ID] = e
	for _, f := range s.Fighters {
		m.active[f.ID] = s.ID
	}
	return nil
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// arm schedules the timeout for the session state identified by seq.
// Callers hold e.mu or own e exclusively.
func (m *Manager) arm(e *entry, after time.Duration, seq int) *time.Timer {
	if after <= 0 {
		return nil
	}
	return time.AfterFunc(after, func() { m.timeout(e, seq) })
}

func (m *Manager) rearm(e *entry, after time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = m.arm(e, after, e.session.Seq)
}

func (m *Manager) timeout(e *entry, seq int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.Seq != seq || s.State == Concluded {
		return
	}

	switch s.State {
	case AwaitingAcceptance:
		if _, err := s.Expire(); err != nil {
			return
		}
		m.release(e)
		log.Info().Str("duel_id", s.ID).Msg("Duel challenge expired")
		m.listener.ChallengeExpired(s.Clone())
	case InProgress:
		idle := s.Current().ID
		if _, err := s.Forfeit(); err != nil {
			return
		}
		log.Info().Str("duel_id", s.ID).Int64("idle", idle).Msg("Duel turn timed out")
		spoils := m.settle(context.Background(), e)
		m.listener.TurnTimedOut(s.Clone(), spoils)
	}
}

// settle applies a concluded session and forgets it. Settlement failures
// are logged; the session is released regardless.
func (m *Manager) settle(ctx context.Context, e *entry) int64 {
	defer m.release(e)
	spoils, err := m.deps.Settler.Settle(ctx, e.session.Clone())
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Str("duel_id", e.session.ID).Msg("Failed to settle duel")
	}
	return spoils
}

func (m *Manager) release(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := e.session
	delete(m.sessions, s.ID)
	for _, f := range s.Fighters {
		if m.active[f.ID] == s.ID {
			delete(m.active, f.ID)
		}
	}
}
