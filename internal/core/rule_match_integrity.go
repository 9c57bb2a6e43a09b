package core

import (
	"context"
	"fmt"

	"cricketcore/pkg/domain"
)

// NewMatchIntegrityRule returns the rule checking team references and the
// result fields of changed matches.
func NewMatchIntegrityRule() domain.Rule {
	return matchIntegrityRule{}
}

type matchIntegrityRule struct{}

func (matchIntegrityRule) Name() string { return "match_integrity" }

func (matchIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	add := func(m domain.Match, severity domain.Severity, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "match_integrity",
			Severity: severity,
			Message:  fmt.Sprintf("match %s: ", m.ID) + fmt.Sprintf(format, args...),
			Entity:   domain.EntityMatch,
			EntityID: m.ID,
		})
	}
	for _, ch := range changes {
		m, ok := ch.After.(domain.Match)
		if !ok {
			continue
		}
		if m.TeamA == m.TeamB {
			add(m, domain.SeverityBlock, "team %s cannot play itself", m.TeamA)
		}
		for _, team := range []string{m.TeamA, m.TeamB} {
			if _, ok := view.FindTeam(team); !ok {
				add(m, domain.SeverityBlock, "unknown team %s", team)
			}
		}
		if m.BattingTeam != "" && !m.HasTeam(m.BattingTeam) {
			add(m, domain.SeverityBlock, "batting team %s is not playing", m.BattingTeam)
		}
		if m.Winner != "" && !m.HasTeam(m.Winner) {
			add(m, domain.SeverityBlock, "winner %s is not playing", m.Winner)
		}
		if m.Status == domain.MatchCompleted && m.Winner == "" && !m.Drawn {
			add(m, domain.SeverityWarn, "completed without a result")
		}
		if m.CurrentBowler != "" {
			if _, ok := view.FindPlayer(m.FieldingTeam(), m.CurrentBowler); !ok {
				add(m, domain.SeverityWarn, "bowler %s is not in the fielding side", m.CurrentBowler)
			}
		}
	}
	return res, nil
}
