package core

import (
	"context"
	"strings"

	"cricketcore/pkg/domain"
)

func checkLive(m domain.Match) error {
	switch m.Status {
	case domain.MatchLive:
		return nil
	case domain.MatchCompleted:
		return reject(ReasonMatchCompleted, "match %s is completed", m.ID)
	}
	return reject(ReasonMatchNotLive, "match %s is not live", m.ID)
}

// AssignBowler sets the bowler for the next over. The bowler must belong to
// the fielding side and the match must be waiting for one.
func (s *Service) AssignBowler(ctx context.Context, matchID, name string) (MatchState, error) {
	var state MatchState
	name = strings.TrimSpace(name)
	err := s.observe(ctx, opAssignBowler, &matchID, func(ctx context.Context) error {
		sess, m, err := s.lockSession(matchID)
		if err != nil {
			return err
		}
		defer sess.mu.Unlock()
		if err := checkLive(m); err != nil {
			return err
		}
		if sess.ctx.InningsComplete {
			return reject(ReasonInningsComplete, "innings is complete")
		}
		if !sess.ctx.AwaitingBowler {
			return reject(ReasonNotAwaitingBowler, "%s is bowling the current over", sess.ctx.Bowler)
		}
		var updated domain.Match
		if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindPlayer(m.FieldingTeam(), name); !ok {
				return reject(ReasonBowlerNotFielding, "%s does not play for %s", name, m.FieldingTeam())
			}
			var err error
			updated, err = tx.UpdateMatch(matchID, func(m *domain.Match) error {
				m.CurrentBowler = name
				return nil
			})
			return err
		}); err != nil {
			return err
		}
		next := sess.ctx.clone()
		next.Bowler = name
		next.AwaitingBowler = false
		if next.Dialog == DialogBowler {
			next.Dialog = DialogNone
		}
		sess.ctx = next
		state = s.stateLocked(sess, updated)
		return nil
	})
	return state, err
}

// AssignStriker seats name on strike. Naming the current non-striker swaps
// the pair.
func (s *Service) AssignStriker(ctx context.Context, matchID, name string) (MatchState, error) {
	return s.assignBatsman(ctx, opAssignStriker, matchID, name, true)
}

// AssignNonStriker seats name at the bowler's end. Naming the current striker
// swaps the pair.
func (s *Service) AssignNonStriker(ctx context.Context, matchID, name string) (MatchState, error) {
	return s.assignBatsman(ctx, opAssignNonStriker, matchID, name, false)
}

func (s *Service) assignBatsman(ctx context.Context, op, matchID, name string, striker bool) (MatchState, error) {
	var state MatchState
	name = strings.TrimSpace(name)
	err := s.observe(ctx, op, &matchID, func(_ context.Context) error {
		sess, m, err := s.lockSession(matchID)
		if err != nil {
			return err
		}
		defer sess.mu.Unlock()
		if err := checkLive(m); err != nil {
			return err
		}
		if sess.ctx.InningsComplete {
			return reject(ReasonInningsComplete, "innings is complete")
		}
		p, ok := findRosterPlayer(s.store.ListTeamPlayers(m.BattingTeam), name)
		if !ok {
			return reject(ReasonBatsmanNotBatting, "%s does not bat for %s", name, m.BattingTeam)
		}
		if p.Out {
			return reject(ReasonBatsmanOut, "%s is already out", name)
		}

		next := sess.ctx.clone()
		role, other := &next.Striker, &next.NonStriker
		if !striker {
			role, other = other, role
		}
		switch {
		case *role == name:
		case *other == name && *role == "":
			return reject(ReasonRoleConflict, "%s already holds the other role", name)
		case *other == name:
			next.swapStrike()
		default:
			*role = name
		}
		if next.Dialog == DialogBatsmanPos {
			next.Dialog = DialogNone
		}
		sess.ctx = next
		state = s.stateLocked(sess, m)
		return nil
	})
	return state, err
}

func findRosterPlayer(roster []domain.Player, name string) (domain.Player, bool) {
	for _, p := range roster {
		if p.Name == name {
			return p, true
		}
	}
	return domain.Player{}, false
}

// SetBatFirst chooses the side that bats first. It is refused once either
// side has scored, lost a wicket or faced a ball.
func (s *Service) SetBatFirst(ctx context.Context, matchID, team string) (MatchState, error) {
	var (
		state MatchState
		fx    sideEffects
	)
	team = strings.TrimSpace(team)
	err := s.observe(ctx, opSetBatFirst, &matchID, func(ctx context.Context) error {
		sess, m, err := s.lockSession(matchID)
		if err != nil {
			return err
		}
		defer sess.mu.Unlock()
		if m.Status == domain.MatchCompleted {
			return reject(ReasonMatchCompleted, "match %s is completed", matchID)
		}
		if !m.HasTeam(team) {
			return reject(ReasonUnknownTeam, "%s is not playing in this match", team)
		}
		if m.InningsStarted() {
			return reject(ReasonInningsStarted, "batting order is locked once the innings has started")
		}
		var updated domain.Match
		if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateMatch(matchID, func(m *domain.Match) error {
				m.BattingTeam = team
				m.CurrentBowler = ""
				return nil
			})
			return err
		}); err != nil {
			return err
		}
		next := sess.ctx.clone()
		if updated.Status == domain.MatchLive {
			next.resetForInnings(s.store.ListTeamPlayers(team))
		}
		sess.ctx = next
		sess.undo.clear()
		s.publish(&fx, sess, []Notification{{
			MatchID: matchID,
			Level:   LevelInfo,
			Icon:    iconInfo,
			Message: team + " will bat first.",
		}})
		state = s.stateLocked(sess, updated)
		return nil
	})
	s.flush(ctx, fx)
	return state, err
}

// CloseMatch ends a live match. During a chase the batting side wins when
// the target is reached and the fielding side otherwise; without a target the
// higher total wins and level totals are a draw. Closing a completed match is
// a no-op. An explicit close cannot be undone.
func (s *Service) CloseMatch(ctx context.Context, matchID string) (MatchState, error) {
	var (
		state MatchState
		fx    sideEffects
	)
	err := s.observe(ctx, opCloseMatch, &matchID, func(ctx context.Context) error {
		sess, m, err := s.lockSession(matchID)
		if err != nil {
			return err
		}
		defer sess.mu.Unlock()
		if m.Status == domain.MatchCompleted {
			state = s.stateLocked(sess, m)
			return nil
		}
		if m.Status != domain.MatchLive {
			return reject(ReasonMatchNotLive, "match %s is not live", matchID)
		}
		var closed domain.Match
		if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			closed, err = tx.UpdateMatch(matchID, func(m *domain.Match) error {
				winner, drawn := decideWinner(*m)
				m.Complete(winner)
				m.Drawn = drawn
				return nil
			})
			return err
		}); err != nil {
			return err
		}
		next := sess.ctx.clone()
		next.Bowler = ""
		next.AwaitingBowler = false
		next.InningsComplete = true
		next.Dialog = DialogNone
		sess.ctx = next
		sess.undo.clear()
		msg := "Match completed. " + closed.Winner + " declared winner."
		if closed.Drawn {
			msg = "Match completed. Scores level, match drawn."
		}
		s.publish(&fx, sess, []Notification{{
			MatchID: matchID,
			Level:   LevelSuccess,
			Icon:    iconTrophy,
			Message: msg,
		}})
		s.queueArchive(&fx, closed, sess.ctx)
		state = s.stateLocked(sess, closed)
		return nil
	})
	s.flush(ctx, fx)
	return state, err
}

func decideWinner(m domain.Match) (winner string, drawn bool) {
	if m.Target > 0 && m.BattingTeam != "" {
		if m.BattingScore().Runs >= m.Target {
			return m.BattingTeam, false
		}
		return m.FieldingTeam(), false
	}
	a, b := m.ScoreA.Runs, m.ScoreB.Runs
	switch {
	case a > b:
		return m.TeamA, false
	case b > a:
		return m.TeamB, false
	}
	return "", true
}

// OpenDialog records the scorer prompt in use. Opening a prompt replaces any
// other open prompt.
func (s *Service) OpenDialog(_ context.Context, matchID string, kind DialogKind) (MatchState, error) {
	if !dialogKinds[kind] {
		return MatchState{}, reject(ReasonUnknownDialog, "unknown dialog %q", kind)
	}
	sess, m, err := s.lockSession(matchID)
	if err != nil {
		return MatchState{}, err
	}
	defer sess.mu.Unlock()
	sess.ctx.Dialog = kind
	return s.stateLocked(sess, m), nil
}

// CloseDialog clears the open scorer prompt.
func (s *Service) CloseDialog(_ context.Context, matchID string) (MatchState, error) {
	sess, m, err := s.lockSession(matchID)
	if err != nil {
		return MatchState{}, err
	}
	defer sess.mu.Unlock()
	sess.ctx.Dialog = DialogNone
	return s.stateLocked(sess, m), nil
}
