package core

import (
	"sync"

	"cricketcore/internal/overs"
	"cricketcore/pkg/domain"
)

// BowlingFigures are one bowler's figures for the current innings.
type BowlingFigures struct {
	Balls   int `json:"balls"`
	Runs    int `json:"runs"`
	Wickets int `json:"wickets"`
}

// Overs renders the ball count in overs notation.
func (f BowlingFigures) Overs() string {
	return overs.FormatBalls(f.Balls)
}

// Economy renders runs per over or the placeholder.
func (f BowlingFigures) Economy() string {
	return overs.FormatRate(overs.Economy(f.Runs, f.Balls))
}

// DialogKind names a scorer prompt. At most one is open at a time.
type DialogKind string

// Scorer prompts.
const (
	DialogNone       DialogKind = ""
	DialogWicket     DialogKind = "wicket"
	DialogRunOut     DialogKind = "run_out"
	DialogNoBall     DialogKind = "no_ball"
	DialogNoBallWkt  DialogKind = "no_ball_run_out"
	DialogBowler     DialogKind = "bowler"
	DialogBatsmanPos DialogKind = "batsman"
)

var dialogKinds = map[DialogKind]bool{
	DialogWicket:     true,
	DialogRunOut:     true,
	DialogNoBall:     true,
	DialogNoBallWkt:  true,
	DialogBowler:     true,
	DialogBatsmanPos: true,
}

// InningsContext is the in-memory state of the innings in progress. It is
// owned by a match session and replaced wholesale after each commit.
type InningsContext struct {
	Striker         string
	NonStriker      string
	Bowler          string
	AwaitingBowler  bool
	InningsComplete bool
	Figures         map[string]BowlingFigures
	// BowlerOrder lists bowlers in the order they first bowled.
	BowlerOrder []string
	Commentary  []string
	Dialog      DialogKind
}

func newInningsContext() InningsContext {
	return InningsContext{Figures: make(map[string]BowlingFigures)}
}

func (c InningsContext) clone() InningsContext {
	out := c
	out.Figures = make(map[string]BowlingFigures, len(c.Figures))
	for k, v := range c.Figures {
		out.Figures[k] = v
	}
	out.BowlerOrder = append([]string(nil), c.BowlerOrder...)
	out.Commentary = append([]string(nil), c.Commentary...)
	return out
}

// AtCrease reports whether name holds either batting role.
func (c InningsContext) AtCrease(name string) bool {
	return name != "" && (name == c.Striker || name == c.NonStriker)
}

func (c *InningsContext) swapStrike() {
	c.Striker, c.NonStriker = c.NonStriker, c.Striker
}

func (c *InningsContext) chargeBowler(name string, d domain.Delivery) {
	f, seen := c.Figures[name]
	if !seen {
		c.BowlerOrder = append(c.BowlerOrder, name)
	}
	f.Runs += d.ChargedToBowler()
	if !d.Extra {
		f.Balls++
	}
	if d.Wicket {
		f.Wickets++
	}
	c.Figures[name] = f
}

// resetForInnings clears per-innings state and seats the opening pair.
func (c *InningsContext) resetForInnings(roster []domain.Player) {
	c.Figures = make(map[string]BowlingFigures)
	c.BowlerOrder = nil
	c.Bowler = ""
	c.AwaitingBowler = true
	c.InningsComplete = false
	c.Striker, c.NonStriker = openingPair(roster, "")
}

// openingPair returns the first two not-out players, skipping exclude.
func openingPair(roster []domain.Player, exclude string) (string, string) {
	var picked []string
	for _, p := range roster {
		if p.Out || p.Name == exclude {
			continue
		}
		picked = append(picked, p.Name)
		if len(picked) == 2 {
			break
		}
	}
	switch len(picked) {
	case 0:
		return "", ""
	case 1:
		return picked[0], ""
	}
	return picked[0], picked[1]
}

func notOutCount(roster []domain.Player) int {
	n := 0
	for _, p := range roster {
		if !p.Out {
			n++
		}
	}
	return n
}

// matchSession serialises scoring actions on one match.
type matchSession struct {
	mu      sync.Mutex
	loaded  bool
	ctx     InningsContext
	undo    *undoStack
	notices []Notification
}

// SessionManager owns the per-match scoring sessions of a service.
type SessionManager struct {
	mu        sync.Mutex
	sessions  map[string]*matchSession
	undoDepth int
}

// NewSessionManager constructs a manager whose sessions keep at most
// undoDepth snapshots.
func NewSessionManager(undoDepth int) *SessionManager {
	return &SessionManager{sessions: make(map[string]*matchSession), undoDepth: undoDepth}
}

func (m *SessionManager) get(matchID string) *matchSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[matchID]
	if !ok {
		sess = &matchSession{ctx: newInningsContext(), undo: newUndoStack(m.undoDepth)}
		m.sessions[matchID] = sess
	}
	return sess
}

// Drop forgets the session of matchID.
func (m *SessionManager) Drop(matchID string) {
	m.mu.Lock()
	delete(m.sessions, matchID)
	m.mu.Unlock()
}

// Len returns the number of sessions held.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// hydrate rebuilds the context of a session that has not been touched since
// the process started. The batting pair is not persisted, so the first two
// not-out players of the batting side are seated.
func hydrate(m domain.Match, roster []domain.Player) InningsContext {
	c := newInningsContext()
	if m.Status != domain.MatchLive {
		return c
	}
	c.Bowler = m.CurrentBowler
	c.AwaitingBowler = m.CurrentBowler == ""
	c.Striker, c.NonStriker = openingPair(roster, "")
	return c
}

// lockSession returns the locked session of m, hydrating it on first use.
// Callers must unlock sess.mu.
func (s *Service) lockSession(matchID string) (*matchSession, domain.Match, error) {
	sess := s.sessions.get(matchID)
	sess.mu.Lock()
	m, ok := s.store.GetMatch(matchID)
	if !ok {
		sess.mu.Unlock()
		s.sessions.Drop(matchID)
		return nil, domain.Match{}, ErrNotFound{Entity: domain.EntityMatch, ID: matchID}
	}
	if !sess.loaded {
		sess.ctx = hydrate(m, s.store.ListTeamPlayers(m.BattingTeam))
		sess.loaded = true
	}
	return sess, m, nil
}
