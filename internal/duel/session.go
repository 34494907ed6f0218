// Package duel implements the turn-based duel between two subjects: a pure
// session state machine and a manager that owns live sessions and timers.
package duel

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"royal-market-bot/internal/economy"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/dice"
)

// Duel errors.
var (
	ErrNotYourTurn           = errors.New("not your turn")
	ErrDuelRoleNotAuthorized = errors.New("not authorized to duel")
	ErrNoPotion              = errors.New("no healing potion")
	ErrSessionNotFound       = errors.New("duel not found")
	ErrNotParticipant        = errors.New("not a participant in this duel")
	ErrSessionConcluded      = errors.New("duel already concluded")
	ErrSelfDuel              = errors.New("cannot duel yourself")
	ErrAlreadyInDuel         = errors.New("already in a duel")
	ErrNotStarted            = errors.New("duel has not started")
	ErrInvalidAction         = errors.New("invalid duel action")
)

// Combat constants.
const (
	ThrustHitChance = 70
	ThrustMin       = 15
	ThrustMax       = 25
	SlashHitChance  = 80
	SlashMin        = 10
	SlashMax        = 20
	BlockMin        = 3
	BlockMax        = 7
	HealMin         = 20
	HealMax         = 40
	FleeChance      = 50
	MinDamage       = 1
)

// State is the lifecycle stage of a session.
type State int

const (
	AwaitingAcceptance State = iota
	InProgress
	Concluded
)

func (s State) String() string {
	switch s {
	case AwaitingAcceptance:
		return "awaiting acceptance"
	case InProgress:
		return "in progress"
	case Concluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// Action is one move a fighter makes on their turn.
type Action int

const (
	Thrust Action = iota + 1
	Slash
	Block
	Dodge
	Heal
	Flee
)

var actionNames = map[Action]string{
	Thrust: "thrust",
	Slash:  "slash",
	Block:  "block",
	Dodge:  "dodge",
	Heal:   "heal",
	Flee:   "flee",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction resolves an action by name.
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

// Actions lists every action in button order.
func Actions() []Action {
	return []Action{Thrust, Slash, Block, Dodge, Heal, Flee}
}

// Ending says how a session concluded.
type Ending int

const (
	EndNone Ending = iota
	EndDefeat
	EndFlee
	EndTimeout
	EndDraw
	EndExpired
)

// Fighter is one participant's duel-scoped state.
type Fighter struct {
	ID          int64
	Name        string
	Health      int
	Defense     int
	DodgeArmed  bool
	ItemsUsed   []string
	DamageDealt int
}

// Outcome describes one resolved action.
type Outcome struct {
	Actor         int64
	Action        Action
	Hit           bool
	Dodged        bool
	Damage        int
	Healed        int
	DefenseGained int
	Fled          bool
	Result        *Result
}

// Result is the conclusion of a session. WinnerID and LoserID are zero for
// draws and expired challenges.
type Result struct {
	Ending   Ending
	WinnerID int64
	LoserID  int64
}

// Draw reports whether nobody won.
func (r *Result) Draw() bool {
	return r.Ending == EndDraw
}

// Spoils reports whether the result moves money.
func (r *Result) Spoils() bool {
	switch r.Ending {
	case EndDefeat, EndFlee, EndTimeout:
		return true
	default:
		return false
	}
}

// SpoilsRate is the share of the loser's balance the winner takes.
func (r *Result) SpoilsRate() decimal.Decimal {
	switch r.Ending {
	case EndDefeat:
		return economy.SpoilsDefeatRate
	case EndFlee, EndTimeout:
		return economy.SpoilsFleeRate
	default:
		return decimal.Zero
	}
}

// Session is the state of one duel. It is not safe for concurrent use; the
// Manager serializes access.
type Session struct {
	ID        string
	ChatID    int64
	State     State
	Fighters  [2]*Fighter
	Turn      int
	Seq       int
	CreatedAt time.Time
	Result    *Result
}

// NewSession creates a challenge from challenger to opponent.
func NewSession(id string, chatID int64, challenger, opponent *Fighter, now time.Time) *Session {
	return &Session{
		ID:        id,
		ChatID:    chatID,
		State:     AwaitingAcceptance,
		Fighters:  [2]*Fighter{challenger, opponent},
		CreatedAt: now,
	}
}

// Challenger returns the fighter who issued the challenge.
func (s *Session) Challenger() *Fighter { return s.Fighters[0] }

// Opponent returns the challenged fighter.
func (s *Session) Opponent() *Fighter { return s.Fighters[1] }

// Current returns the fighter whose turn it is.
func (s *Session) Current() *Fighter { return s.Fighters[s.Turn] }

// Fighter returns the participant with the given id.
func (s *Session) Fighter(id int64) (*Fighter, bool) {
	for _, f := range s.Fighters {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Has reports whether id takes part in the session.
func (s *Session) Has(id int64) bool {
	_, ok := s.Fighter(id)
	return ok
}

// Start moves an accepted challenge into combat. Both fighters begin at
// full health with the given armor defense; the first actor is a coin toss.
func (s *Session) Start(src dice.Source, challengerDefense, opponentDefense int) error {
	if s.State != AwaitingAcceptance {
		return ErrSessionConcluded
	}
	for i, def := range []int{challengerDefense, opponentDefense} {
		f := s.Fighters[i]
		f.Health = model.MaxHealth
		f.Defense = def
		f.DodgeArmed = false
		f.ItemsUsed = nil
		f.DamageDealt = 0
	}
	s.Turn = src.Intn(2)
	s.State = InProgress
	s.Seq++
	return nil
}

// CanAct reports whether actor may act now.
func (s *Session) CanAct(actor int64) error {
	switch s.State {
	case Concluded:
		return ErrSessionConcluded
	case AwaitingAcceptance:
		return ErrNotStarted
	}
	if !s.Has(actor) {
		return ErrNotParticipant
	}
	if s.Current().ID != actor {
		return ErrNotYourTurn
	}
	return nil
}

// Submit resolves one action by actor. A Heal assumes the caller has
// already consumed a potion. Failed validation leaves the session unchanged.
func (s *Session) Submit(src dice.Source, actor int64, action Action) (*Outcome, error) {
	if err := s.CanAct(actor); err != nil {
		return nil, err
	}
	if _, ok := actionNames[action]; !ok {
		return nil, ErrInvalidAction
	}

	self := s.Fighters[s.Turn]
	target := s.Fighters[1-s.Turn]
	out := &Outcome{Actor: actor, Action: action}

	switch action {
	case Thrust:
		s.attack(src, self, target, out, ThrustHitChance, ThrustMin, ThrustMax)
	case Slash:
		s.attack(src, self, target, out, SlashHitChance, SlashMin, SlashMax)
	case Block:
		out.DefenseGained = dice.Between(src, BlockMin, BlockMax)
		self.Defense += out.DefenseGained
	case Dodge:
		self.DodgeArmed = true
	case Heal:
		before := self.Health
		self.Health = min(model.MaxHealth, self.Health+dice.Between(src, HealMin, HealMax))
		out.Healed = self.Health - before
		self.ItemsUsed = append(self.ItemsUsed, "healing_potion")
	case Flee:
		if dice.Chance(src, FleeChance) {
			out.Fled = true
			out.Result = s.conclude(EndFlee, target.ID, self.ID)
			return out, nil
		}
	}

	if res := s.checkHealth(); res != nil {
		out.Result = res
		return out, nil
	}
	s.Turn = 1 - s.Turn
	s.Seq++
	return out, nil
}

func (s *Session) attack(src dice.Source, self, target *Fighter, out *Outcome, chance, lo, hi int) {
	if target.DodgeArmed {
		target.DodgeArmed = false
		out.Dodged = true
		return
	}
	if !dice.Chance(src, chance) {
		return
	}
	out.Hit = true
	out.Damage = max(MinDamage, dice.Between(src, lo, hi)-target.Defense)
	target.Health -= out.Damage
	self.DamageDealt += out.Damage
}

func (s *Session) checkHealth() *Result {
	a, b := s.Fighters[0], s.Fighters[1]
	switch {
	case a.Health <= 0 && b.Health <= 0:
		return s.conclude(EndDraw, 0, 0)
	case a.Health <= 0:
		return s.conclude(EndDefeat, b.ID, a.ID)
	case b.Health <= 0:
		return s.conclude(EndDefeat, a.ID, b.ID)
	}
	return nil
}

// Forfeit concludes a running duel against the fighter whose turn it is,
// as if they had fled.
func (s *Session) Forfeit() (*Result, error) {
	if s.State != InProgress {
		return nil, ErrNotStarted
	}
	idle := s.Current()
	return s.conclude(EndTimeout, s.Fighters[1-s.Turn].ID, idle.ID), nil
}

// Expire concludes an unanswered challenge with no effect.
func (s *Session) Expire() (*Result, error) {
	if s.State != AwaitingAcceptance {
		return nil, ErrSessionConcluded
	}
	return s.conclude(EndExpired, 0, 0), nil
}

// Decline concludes a challenge the opponent refused.
func (s *Session) Decline(actor int64) (*Result, error) {
	if s.State != AwaitingAcceptance {
		return nil, ErrSessionConcluded
	}
	if actor != s.Opponent().ID {
		return nil, ErrNotParticipant
	}
	return s.conclude(EndExpired, 0, 0), nil
}

func (s *Session) conclude(ending Ending, winner, loser int64) *Result {
	s.State = Concluded
	s.Seq++
	s.Result = &Result{Ending: ending, WinnerID: winner, LoserID: loser}
	return s.Result
}

// Clone returns a deep copy safe to hand outside the manager.
func (s *Session) Clone() *Session {
	c := *s
	for i, f := range s.Fighters {
		fc := *f
		fc.ItemsUsed = append([]string(nil), f.ItemsUsed...)
		c.Fighters[i] = &fc
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return &c
}
