// Package session holds the per-chat cascading selection state machine:
// commodity → state → market, each level's options loaded from the backend
// and invalidated whenever anything to its left changes.
package session

import (
	"sync"

	"mandiCropBot/internal/query"
)

type Phase int

const (
	PhaseDisabled Phase = iota
	PhaseLoading
	PhaseReady
	PhaseEmpty
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "disabled"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseEmpty:
		return "empty"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

type LevelKind int

const (
	LevelCommodity LevelKind = iota
	LevelState
	LevelMarket
)

// Level is the state of one dropdown-equivalent: its phase, the options when
// Ready, and the disabled reason or error message otherwise.
type Level struct {
	Phase   Phase
	Options []string
	Reason  string
}

const (
	reasonNeedCommodity = "select a commodity first"
	reasonNeedState     = "select a state first"
)

// Token identifies the selection snapshot an options fetch was issued for.
// Any later mutation of the session invalidates earlier tokens, so a slow
// fetch can never overwrite options that belong to a newer selection.
type Token struct {
	epoch uint64
	level LevelKind
}

// Session is the explicit view state for one chat. All mutation goes through
// its methods; the bot handles Telegram updates on goroutines, hence the lock.
type Session struct {
	mu     sync.Mutex
	sel    query.Selection
	levels [3]Level
	epoch  uint64
	busy   bool
}

// New starts with the commodity level loading (the caller kicks off the
// models fetch immediately) and the dependent levels disabled.
func New() *Session {
	s := &Session{}
	s.levels[LevelCommodity] = Level{Phase: PhaseLoading}
	s.levels[LevelState] = Level{Phase: PhaseDisabled, Reason: reasonNeedCommodity}
	s.levels[LevelMarket] = Level{Phase: PhaseDisabled, Reason: reasonNeedState}
	s.epoch++
	return s
}

func (s *Session) token(level LevelKind) Token {
	return Token{epoch: s.epoch, level: level}
}

// BeginCommodityLoad marks the top level loading and returns the token the
// models fetch must present to commit its result.
func (s *Session) BeginCommodityLoad() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.levels[LevelCommodity] = Level{Phase: PhaseLoading}
	return s.token(LevelCommodity)
}

// Resolve commits a finished options fetch for the token's level. It returns
// false, changing nothing, when the token is stale: a newer selection or a
// re-issued fetch has superseded this one.
func (s *Session) Resolve(t Token, options []string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.epoch != s.epoch {
		return false
	}
	lv := &s.levels[t.level]
	switch {
	case err != nil:
		*lv = Level{Phase: PhaseError, Reason: err.Error()}
	case len(options) == 0:
		*lv = Level{Phase: PhaseEmpty}
	default:
		*lv = Level{Phase: PhaseReady, Options: options}
	}
	return true
}

// ChooseCommodity records the pick, moves the state level to loading and
// forces the market level back to disabled. The returned token guards the
// states fetch the caller issues next.
func (s *Session) ChooseCommodity(name string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.sel.SetCommodity(name)
	s.levels[LevelState] = Level{Phase: PhaseLoading}
	s.levels[LevelMarket] = Level{Phase: PhaseDisabled, Reason: reasonNeedState}
	return s.token(LevelState)
}

// ChooseState records the pick and returns the token guarding the markets
// fetch for the current commodity+state pair.
func (s *Session) ChooseState(name string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.sel.SetState(name)
	s.levels[LevelMarket] = Level{Phase: PhaseLoading}
	return s.token(LevelMarket)
}

// ChooseMarket completes the cascade.
func (s *Session) ChooseMarket(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.sel.SetMarket(name)
}

// ClearCommodity resets everything below the top level, regardless of what
// was selected or in flight.
func (s *Session) ClearCommodity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.sel.ClearCommodity()
	s.levels[LevelState] = Level{Phase: PhaseDisabled, Reason: reasonNeedCommodity}
	s.levels[LevelMarket] = Level{Phase: PhaseDisabled, Reason: reasonNeedState}
}

// ClearState resets the market level.
func (s *Session) ClearState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.sel.ClearState()
	s.levels[LevelMarket] = Level{Phase: PhaseDisabled, Reason: reasonNeedState}
}

// SetDate stores the optional cutoff date. It does not invalidate the
// cascade; the date is orthogonal to which options are valid.
func (s *Session) SetDate(d string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Date = d
}

// invalidate marks every outstanding token stale. Called by the manager
// when a fresh session replaces this one.
func (s *Session) invalidate() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
}

// Selection returns a snapshot of the current picks.
func (s *Session) Selection() query.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// LevelView returns a snapshot of one level for rendering.
func (s *Session) LevelView(k LevelKind) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	lv := s.levels[k]
	out := lv
	out.Options = append([]string(nil), lv.Options...)
	return out
}

// TryAcquire takes the submission slot, the equivalent of disabling the
// submit button while a request is running. Returns false when a submission
// is already in flight for this chat.
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// Release frees the submission slot. Callers defer it immediately after a
// successful TryAcquire so every exit path re-enables the control.
func (s *Session) Release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}
