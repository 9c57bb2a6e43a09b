// Package domain defines the persistent scoring entities, the delivery record
// and the rule evaluation primitives used by cricketcore.
package domain

import (
	"fmt"
	"time"

	"cricketcore/internal/overs"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityTeam identifies a team record.
	EntityTeam EntityType = "team"
	// EntityPlayer identifies a roster entry.
	EntityPlayer EntityType = "player"
	// EntityMatch identifies a match record.
	EntityMatch EntityType = "match"
)

// MatchStatus enumerates the match lifecycle. Completed is terminal.
type MatchStatus string

// Canonical match statuses.
const (
	MatchScheduled MatchStatus = "Scheduled"
	MatchLive      MatchStatus = "Live"
	MatchCompleted MatchStatus = "Completed"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Team is immutable once created and referenced by name.
type Team struct {
	Base
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
}

// Player is a roster entry identified by (Name, Team). Batting stats are
// scoped to the team's current match.
type Player struct {
	Base
	Name      string `json:"name"`
	Team      string `json:"team"`
	Order     int    `json:"order"`
	Runs      int    `json:"runs"`
	Balls     int    `json:"balls"`
	Fours     int    `json:"fours"`
	Sixes     int    `json:"sixes"`
	Out       bool   `json:"out"`
	OutReason string `json:"out_reason,omitempty"`
}

// NotOutStatus is the status text of a batsman still in.
const NotOutStatus = "Not Out"

// Key returns the composite identity of the player.
func (p Player) Key() PlayerKey {
	return PlayerKey{Team: p.Team, Name: p.Name}
}

// Status renders the dismissal status ("Not Out", "Out" or "Out (B)").
func (p Player) Status() string {
	if !p.Out {
		return NotOutStatus
	}
	if p.OutReason == "" {
		return "Out"
	}
	return fmt.Sprintf("Out (%s)", p.OutReason)
}

// StrikeRate returns runs per hundred balls, 0 before the first ball faced.
func (p Player) StrikeRate() float64 {
	if p.Balls == 0 {
		return 0
	}
	return float64(p.Runs) / float64(p.Balls) * 100
}

// CreditRuns adds runs attributed to the batsman. A single credit of exactly
// four or six counts as a boundary.
func (p *Player) CreditRuns(runs int) {
	if runs <= 0 {
		return
	}
	p.Runs += runs
	switch runs {
	case 4:
		p.Fours++
	case 6:
		p.Sixes++
	}
}

// CreditBall records one legal delivery faced.
func (p *Player) CreditBall() {
	p.Balls++
}

// MarkDismissed records the batsman as out. reason is the short dismissal
// code and may be empty.
func (p *Player) MarkDismissed(reason string) {
	p.Out = true
	p.OutReason = reason
}

// ResetStats clears the per-match batting line.
func (p *Player) ResetStats() {
	p.Runs, p.Balls, p.Fours, p.Sixes = 0, 0, 0, 0
	p.Out = false
	p.OutReason = ""
}

// PlayerKey is the composite identity of a roster entry.
type PlayerKey struct {
	Team string
	Name string
}

func (k PlayerKey) String() string { return k.Team + "/" + k.Name }

// Score is one side's running total. Overs use the decimal scoreboard
// notation whose fractional digit never exceeds five.
type Score struct {
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Overs   float64 `json:"overs"`
}

// IsZero reports whether nothing has been scored, lost or bowled.
func (s Score) IsZero() bool {
	return s.Runs == 0 && s.Wickets == 0 && overs.TotalBalls(s.Overs) == 0
}

// Line renders the score as "runs/wickets (overs)".
func (s Score) Line() string {
	return fmt.Sprintf("%d/%d (%s)", s.Runs, s.Wickets, overs.Format(s.Overs))
}

// Match is the persisted aggregate for one fixture.
type Match struct {
	Base
	TeamA            string      `json:"team_a"`
	TeamB            string      `json:"team_b"`
	Status           MatchStatus `json:"status"`
	ScoreA           Score       `json:"score_a"`
	ScoreB           Score       `json:"score_b"`
	BattingTeam      string      `json:"batting_team"`
	Target           int         `json:"target"`
	FirstInningsTeam string      `json:"first_innings_team,omitempty"`
	FirstInningsRuns int         `json:"first_innings_runs"`
	Winner           string      `json:"winner,omitempty"`
	Drawn            bool        `json:"drawn,omitempty"`
	CurrentBowler    string      `json:"current_bowler,omitempty"`
	OversLimit       int         `json:"overs_limit"`
}

// HasTeam reports whether team plays in the match.
func (m Match) HasTeam(team string) bool {
	return team != "" && (team == m.TeamA || team == m.TeamB)
}

// Opponent returns the other side of team.
func (m Match) Opponent(team string) string {
	if team == m.TeamA {
		return m.TeamB
	}
	return m.TeamA
}

// FieldingTeam returns the side currently bowling.
func (m Match) FieldingTeam() string {
	return m.Opponent(m.BattingTeam)
}

// ScoreFor returns the score of team.
func (m Match) ScoreFor(team string) Score {
	if team == m.TeamB {
		return m.ScoreB
	}
	return m.ScoreA
}

// BattingScore returns the score of the side at the crease.
func (m Match) BattingScore() Score {
	return m.ScoreFor(m.BattingTeam)
}

// SetScore replaces the score of team.
func (m *Match) SetScore(team string, s Score) {
	if team == m.TeamB {
		m.ScoreB = s
		return
	}
	m.ScoreA = s
}

// InningsStarted reports whether either side has a non-zero score component.
func (m Match) InningsStarted() bool {
	return !m.ScoreA.IsZero() || !m.ScoreB.IsZero()
}

// SecondInnings reports whether a target has been set.
func (m Match) SecondInnings() bool {
	return m.Target > 0
}

// Complete marks the match as finished with the supplied winner.
func (m *Match) Complete(winner string) {
	m.Status = MatchCompleted
	m.Winner = winner
	m.Drawn = false
	m.CurrentBowler = ""
}

// ResetScores clears both scoreboards and innings metadata, leaving battingTeam
// to bat first.
func (m *Match) ResetScores(battingTeam string) {
	m.ScoreA = Score{}
	m.ScoreB = Score{}
	m.BattingTeam = battingTeam
	m.Target = 0
	m.Winner = ""
	m.Drawn = false
	m.FirstInningsTeam = ""
	m.FirstInningsRuns = 0
	m.CurrentBowler = ""
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}
