package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cricketcore/internal/overs"
	"cricketcore/pkg/domain"
)

// BattingLine is one row of a batting card.
type BattingLine struct {
	Name       string `json:"name"`
	Runs       int    `json:"runs"`
	Balls      int    `json:"balls"`
	Fours      int    `json:"fours"`
	Sixes      int    `json:"sixes"`
	StrikeRate string `json:"strike_rate"`
	Status     string `json:"status"`
	AtCrease   bool   `json:"at_crease,omitempty"`
}

// BowlingLine is one row of the bowling card.
type BowlingLine struct {
	Name    string `json:"name"`
	Overs   string `json:"overs"`
	Balls   int    `json:"balls"`
	Runs    int    `json:"runs"`
	Wickets int    `json:"wickets"`
	Economy string `json:"economy"`
}

// InningsCard summarises one side's batting.
type InningsCard struct {
	Team      string        `json:"team"`
	Score     domain.Score  `json:"score"`
	ScoreLine string        `json:"score_line"`
	RunRate   string        `json:"run_rate"`
	Extras    int           `json:"extras"`
	Batting   []BattingLine `json:"batting"`
}

// Scorecard is the full card of a match.
type Scorecard struct {
	MatchID      string             `json:"match_id"`
	Number       int                `json:"number"`
	TeamA        string             `json:"team_a"`
	TeamB        string             `json:"team_b"`
	Status       domain.MatchStatus `json:"status"`
	Result       string             `json:"result,omitempty"`
	Target       int                `json:"target,omitempty"`
	RequiredRate string             `json:"required_rate,omitempty"`
	Innings      []InningsCard      `json:"innings"`
	BowlingTeam  string             `json:"bowling_team"`
	Bowling      []BowlingLine      `json:"bowling"`
	Commentary   []string           `json:"commentary"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// Scorecard builds the card of a match from its record, rosters and the
// current innings' bowling figures.
func (s *Service) Scorecard(_ context.Context, matchID string) (Scorecard, error) {
	sess, m, err := s.lockSession(matchID)
	if err != nil {
		return Scorecard{}, err
	}
	defer sess.mu.Unlock()
	return s.buildScorecard(m, sess.ctx), nil
}

func (s *Service) buildScorecard(m domain.Match, c InningsContext) Scorecard {
	card := Scorecard{
		MatchID:     m.ID,
		Number:      s.MatchNumbers(context.Background())[m.ID],
		TeamA:       m.TeamA,
		TeamB:       m.TeamB,
		Status:      m.Status,
		Result:      resultText(m),
		Target:      m.Target,
		BowlingTeam: m.FieldingTeam(),
		Bowling:     bowlingCard(c),
		Commentary:  append([]string(nil), c.Commentary...),
		GeneratedAt: s.clock.Now(),
	}
	if m.Status == domain.MatchLive && m.Target > 0 {
		card.RequiredRate = requiredRate(m)
	}
	first, second := m.BattingTeam, m.FieldingTeam()
	if m.FirstInningsTeam != "" {
		first, second = m.FirstInningsTeam, m.Opponent(m.FirstInningsTeam)
	}
	for _, team := range []string{first, second} {
		card.Innings = append(card.Innings, inningsCard(team, m.ScoreFor(team), s.store.ListTeamPlayers(team), c, team == m.BattingTeam))
	}
	return card
}

func inningsCard(team string, score domain.Score, roster []domain.Player, c InningsContext, batting bool) InningsCard {
	card := InningsCard{
		Team:      team,
		Score:     score,
		ScoreLine: score.Line(),
		RunRate:   overs.FormatRate(overs.RunRate(score.Runs, score.Overs)),
	}
	credited := 0
	for _, p := range roster {
		credited += p.Runs
		card.Batting = append(card.Batting, BattingLine{
			Name:       p.Name,
			Runs:       p.Runs,
			Balls:      p.Balls,
			Fours:      p.Fours,
			Sixes:      p.Sixes,
			StrikeRate: fmt.Sprintf("%.1f", p.StrikeRate()),
			Status:     p.Status(),
			AtCrease:   batting && c.AtCrease(p.Name),
		})
	}
	if extras := score.Runs - credited; extras > 0 {
		card.Extras = extras
	}
	return card
}

// bowlingCard orders bowlers by wickets, then fewest runs, then fewest balls.
func bowlingCard(c InningsContext) []BowlingLine {
	lines := make([]BowlingLine, 0, len(c.BowlerOrder))
	for _, name := range c.BowlerOrder {
		f := c.Figures[name]
		lines = append(lines, BowlingLine{
			Name:    name,
			Overs:   f.Overs(),
			Balls:   f.Balls,
			Runs:    f.Runs,
			Wickets: f.Wickets,
			Economy: f.Economy(),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Wickets != b.Wickets {
			return a.Wickets > b.Wickets
		}
		if a.Runs != b.Runs {
			return a.Runs < b.Runs
		}
		return a.Balls < b.Balls
	})
	return lines
}

func resultText(m domain.Match) string {
	switch {
	case m.Status == domain.MatchCompleted && m.Drawn:
		return "Match drawn"
	case m.Status == domain.MatchCompleted && m.Winner != "":
		return m.Winner + " won"
	case m.Status == domain.MatchLive && m.Target > 0:
		score := m.BattingScore()
		need := m.Target - score.Runs
		if m.OversLimit <= 0 {
			return fmt.Sprintf("%s need %d runs", m.BattingTeam, need)
		}
		left := m.OversLimit*overs.BallsPerOver - overs.TotalBalls(score.Overs)
		return fmt.Sprintf("%s need %d runs from %d balls", m.BattingTeam, need, left)
	}
	return ""
}

// queueArchive snapshots the final card for archiving once the session is
// unlocked.
func (s *Service) queueArchive(fx *sideEffects, m domain.Match, c InningsContext) {
	if s.archiver == nil {
		return
	}
	card := s.buildScorecard(m, c)
	fx.card = &card
}

// archive stores the final card. Failures are logged; the match result is
// already committed.
func (s *Service) archive(ctx context.Context, card Scorecard) {
	if err := s.archiver.ArchiveScorecard(ctx, card); err != nil {
		s.logger.Warn("scorecard archive failed", "match", card.MatchID, "error", err)
		return
	}
	s.logger.Info("scorecard archived", "match", card.MatchID)
}
