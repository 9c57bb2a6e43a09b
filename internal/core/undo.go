package core

import (
	"context"

	"cricketcore/pkg/domain"
)

// DefaultUndoDepth bounds the snapshots kept per match.
const DefaultUndoDepth = 300

// deliverySnapshot captures everything a delivery can change so that undo
// restores the exact prior state.
type deliverySnapshot struct {
	match         domain.Match
	players       []domain.Player
	context       InningsContext
	commentaryLen int
	action        string
}

// undoStack is a bounded LIFO that discards the oldest snapshot when full.
type undoStack struct {
	max   int
	items []deliverySnapshot
}

func newUndoStack(depth int) *undoStack {
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	return &undoStack{max: depth}
}

func (u *undoStack) push(s deliverySnapshot) {
	if len(u.items) == u.max {
		copy(u.items, u.items[1:])
		u.items = u.items[:len(u.items)-1]
	}
	u.items = append(u.items, s)
}

func (u *undoStack) pop() (deliverySnapshot, bool) {
	if len(u.items) == 0 {
		return deliverySnapshot{}, false
	}
	last := u.items[len(u.items)-1]
	u.items = u.items[:len(u.items)-1]
	return last, true
}

func (u *undoStack) len() int { return len(u.items) }

func (u *undoStack) clear() { u.items = nil }

// UndoLastDelivery reverts the most recent delivery on the match, restoring
// the match record, the batting rows it touched and the innings context.
func (s *Service) UndoLastDelivery(ctx context.Context, matchID string) (MatchState, error) {
	var (
		state MatchState
		fx    sideEffects
	)
	err := s.observe(ctx, opUndoDelivery, &matchID, func(ctx context.Context) error {
		sess, _, err := s.lockSession(matchID)
		if err != nil {
			return err
		}
		defer sess.mu.Unlock()

		snap, ok := sess.undo.pop()
		if !ok {
			return reject(ReasonNothingToUndo, "nothing to undo")
		}
		if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, err := tx.UpdateMatch(matchID, func(m *domain.Match) error {
				*m = snap.match
				return nil
			}); err != nil {
				return err
			}
			for _, saved := range snap.players {
				saved := saved
				if _, err := tx.UpdatePlayer(saved.ID, func(p *domain.Player) error {
					*p = saved
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			sess.undo.push(snap)
			return err
		}

		restored := snap.context.clone()
		commentary := sess.ctx.Commentary
		if snap.commentaryLen <= len(commentary) {
			commentary = commentary[:snap.commentaryLen]
		}
		restored.Commentary = append([]string(nil), commentary...)
		restored.Dialog = DialogNone
		sess.ctx = restored
		s.publish(&fx, sess, []Notification{{
			MatchID: matchID,
			Level:   LevelInfo,
			Icon:    iconInfo,
			Message: "Undone: " + snap.action,
		}})
		m, _ := s.store.GetMatch(matchID)
		state = s.stateLocked(sess, m)
		return nil
	})
	s.flush(ctx, fx)
	return state, err
}
