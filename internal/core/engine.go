package core

import (
	"context"
	"fmt"

	"cricketcore/internal/overs"
	"cricketcore/pkg/domain"
)

// DeliveryOutcome reports the state after a delivery and the notifications
// it raised.
type DeliveryOutcome struct {
	State          MatchState     `json:"state"`
	Notifications  []Notification `json:"notifications"`
	OverCompleted  bool           `json:"over_completed"`
	InningsClosed  bool           `json:"innings_closed"`
	MatchCompleted bool           `json:"match_completed"`
}

// ApplyDelivery scores one ball. Either every effect of the delivery is
// committed and an undo snapshot is pushed, or nothing changes.
func (s *Service) ApplyDelivery(ctx context.Context, matchID string, d domain.Delivery) (DeliveryOutcome, error) {
	var (
		out DeliveryOutcome
		fx  sideEffects
	)
	err := s.observe(ctx, opApplyDelivery, &matchID, func(ctx context.Context) error {
		sess, m, err := s.lockSession(matchID)
		if err != nil {
			return err
		}
		defer sess.mu.Unlock()

		if err := checkScoring(m, sess.ctx); err != nil {
			return err
		}
		if err := d.Validate(); err != nil {
			return reject(ReasonInvalidDelivery, "%v", err)
		}
		if d.DismissedPlayer != "" && !sess.ctx.AtCrease(d.DismissedPlayer) {
			return reject(ReasonDismissedNotAtCrease, "%s is not at the crease", d.DismissedPlayer)
		}

		var step deliveryStep
		if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			step, err = applyDelivery(tx, matchID, sess.ctx, d)
			return err
		}); err != nil {
			return err
		}

		sess.undo.push(step.snapshot)
		sess.ctx = step.next
		notes := s.publish(&fx, sess, step.notes)
		final, _ := s.store.GetMatch(matchID)
		if step.matchCompleted {
			s.queueArchive(&fx, final, sess.ctx)
		}
		out = DeliveryOutcome{
			State:          s.stateLocked(sess, final),
			Notifications:  notes,
			OverCompleted:  step.overCompleted,
			InningsClosed:  step.inningsClosed,
			MatchCompleted: step.matchCompleted,
		}
		return nil
	})
	s.flush(ctx, fx)
	return out, err
}

// checkScoring rejects deliveries the match cannot accept.
func checkScoring(m domain.Match, c InningsContext) error {
	switch {
	case m.Status == domain.MatchCompleted:
		return reject(ReasonMatchCompleted, "match %s is completed", m.ID)
	case m.Status != domain.MatchLive:
		return reject(ReasonMatchNotLive, "match %s is not live", m.ID)
	case c.InningsComplete:
		return reject(ReasonInningsComplete, "innings is complete")
	case c.AwaitingBowler || c.Bowler == "":
		return reject(ReasonAwaitingBowler, "assign a bowler before the next delivery")
	}
	return nil
}

type deliveryStep struct {
	snapshot       deliverySnapshot
	next           InningsContext
	notes          []Notification
	overCompleted  bool
	inningsClosed  bool
	matchCompleted bool
}

func (st *deliveryStep) notify(m domain.Match, level NotificationLevel, icon, format string, args ...any) {
	st.notes = append(st.notes, Notification{
		MatchID: m.ID,
		Level:   level,
		Icon:    icon,
		Message: fmt.Sprintf(format, args...),
	})
}

// applyDelivery performs every effect of d inside tx and returns the next
// innings context. cur is not modified.
func applyDelivery(tx domain.Transaction, matchID string, cur InningsContext, d domain.Delivery) (deliveryStep, error) {
	var step deliveryStep
	m, ok := tx.FindMatch(matchID)
	if !ok {
		return step, ErrNotFound{Entity: domain.EntityMatch, ID: matchID}
	}
	batting := m.BattingTeam
	action := d.Describe(cur.Striker)

	saved := cur.clone()
	saved.Commentary = nil
	step.snapshot = deliverySnapshot{
		match:         m,
		context:       saved,
		commentaryLen: len(cur.Commentary),
		action:        action,
	}
	rows := make(map[string]domain.Player, 2)
	for _, name := range []string{cur.Striker, cur.NonStriker} {
		if name == "" {
			continue
		}
		p, ok := tx.FindPlayer(batting, name)
		if !ok {
			return step, ErrNotFound{Entity: domain.EntityPlayer, ID: domain.PlayerKey{Team: batting, Name: name}.String()}
		}
		rows[name] = p
		step.snapshot.players = append(step.snapshot.players, p)
	}
	next := cur.clone()

	if striker, ok := rows[cur.Striker]; ok {
		if _, err := tx.UpdatePlayer(striker.ID, func(p *domain.Player) error {
			if d.CreditBatsman {
				p.CreditRuns(d.CreditedRuns())
			}
			if !d.Extra {
				p.CreditBall()
			}
			return nil
		}); err != nil {
			return step, err
		}
	}

	score := m.BattingScore()
	score.Runs += d.TotalRuns
	if d.Wicket {
		score.Wickets++
	}
	if !d.Extra {
		score.Overs, step.overCompleted = overs.AdvanceOneBall(score.Overs)
	}
	m.SetScore(batting, score)

	next.chargeBowler(cur.Bowler, d)

	// Odd runs cross the batsmen; the end of an over crosses them back.
	if (d.CreditedRuns()%2 == 1) != step.overCompleted {
		next.swapStrike()
	}

	if d.Wicket {
		if err := dismiss(tx, &step, &next, m, rows, cur.Striker, d); err != nil {
			return step, err
		}
	}

	if m.Target > 0 && score.Runs >= m.Target {
		m.Complete(batting)
		next.Bowler = ""
		next.AwaitingBowler = false
		next.InningsComplete = true
		step.matchCompleted = true
		step.notify(m, LevelSuccess, iconTrophy, "%s chase down the target of %d!", batting, m.Target)
	}

	if !step.matchCompleted {
		closeInningsIfOver(tx, &step, &next, &m, score)
	}

	// An innings that closes on the last ball of an over needs no new bowler.
	if step.overCompleted && !step.inningsClosed && !step.matchCompleted {
		next.Bowler = ""
		next.AwaitingBowler = true
		step.notify(m, LevelInfo, iconOver, "Over complete! %s %d/%d after %s overs. Assign a new bowler.",
			batting, score.Runs, score.Wickets, overs.Format(score.Overs))
	}

	m.CurrentBowler = next.Bowler
	if _, err := tx.UpdateMatch(matchID, func(stored *domain.Match) error {
		*stored = m
		return nil
	}); err != nil {
		return step, err
	}

	next.Commentary = append(next.Commentary, action)
	next.Dialog = DialogNone
	step.next = next
	return step, nil
}

// dismiss marks the dismissed batsman out and fills the vacated role with the
// next not-out player. Without an explicit player the striker who faced is out.
func dismiss(tx domain.Transaction, step *deliveryStep, next *InningsContext, m domain.Match, rows map[string]domain.Player, faced string, d domain.Delivery) error {
	dismissed := d.DismissedPlayer
	if dismissed == "" {
		dismissed = faced
	}
	if row, ok := rows[dismissed]; ok {
		out, err := tx.UpdatePlayer(row.ID, func(p *domain.Player) error {
			p.MarkDismissed(d.Dismissal.Code())
			return nil
		})
		if err != nil {
			return err
		}
		step.notify(m, LevelAlert, iconWicket, "%s! %s departs for %d (%d) • SR %.1f",
			d.Dismissal.Label(true), out.Name, out.Runs, out.Balls, out.StrikeRate())
	}

	roster := tx.ListTeamPlayers(m.BattingTeam)
	if dismissed != "" && dismissed == next.NonStriker {
		next.NonStriker, _ = openingPair(roster, next.Striker)
		return nil
	}
	next.Striker, _ = openingPair(roster, next.NonStriker)
	return nil
}

// closeInningsIfOver ends the innings when the batting side is all out or the
// overs are used up. The first innings hands over to the chase; the second
// completes the match for the fielding side.
func closeInningsIfOver(tx domain.Transaction, step *deliveryStep, next *InningsContext, m *domain.Match, score domain.Score) {
	batting := m.BattingTeam
	roster := tx.ListTeamPlayers(batting)
	allOut := notOutCount(roster) < 2 || score.Wickets >= 10
	oversUp := m.OversLimit > 0 && overs.TotalBalls(score.Overs) >= m.OversLimit*overs.BallsPerOver
	if !allOut && !oversUp {
		return
	}
	step.inningsClosed = true

	if !m.SecondInnings() {
		chasing := m.FieldingTeam()
		m.Target = score.Runs + 1
		m.FirstInningsTeam = batting
		m.FirstInningsRuns = score.Runs
		m.BattingTeam = chasing
		next.resetForInnings(tx.ListTeamPlayers(chasing))
		if allOut {
			step.notify(*m, LevelInfo, iconInnings, "End of innings! %s are all out for %d. %s need %d to win.",
				batting, score.Runs, chasing, m.Target)
		} else {
			step.notify(*m, LevelInfo, iconInnings, "End of innings! %s finish on %d/%d. %s need %d to win.",
				batting, score.Runs, score.Wickets, chasing, m.Target)
		}
		return
	}

	defending := m.FieldingTeam()
	next.InningsComplete = true
	next.AwaitingBowler = false
	next.Bowler = ""
	if allOut {
		stranded, _ := openingPair(roster, "")
		next.Striker = ""
		next.NonStriker = stranded
	}
	m.Complete(defending)
	step.matchCompleted = true
	if allOut {
		step.notify(*m, LevelSuccess, iconTrophy, "%s win! %s are bowled out for %d.", defending, batting, score.Runs)
	} else {
		step.notify(*m, LevelSuccess, iconTrophy, "%s win! %s finish on %d/%d chasing %d.",
			defending, batting, score.Runs, score.Wickets, m.Target)
	}
}
