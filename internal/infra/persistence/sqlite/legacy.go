package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cricketcore/internal/overs"
	"cricketcore/pkg/domain"
)

// ErrLegacyPathRequired is returned when ImportLegacy is given no source path.
var ErrLegacyPathRequired = errors.New("legacy database path required")

// LegacyDrawWinner is the winner value the older layout stores for level scores.
const LegacyDrawWinner = "Draw"

// LegacyReport summarises an ImportLegacy run.
type LegacyReport struct {
	Teams          int
	Players        int
	Matches        int
	SkippedPlayers int
	SkippedMatches int
}

// ImportLegacy copies teams, players and matches from a database written in
// the older column layout (teams, players with per-row batting columns,
// matches with team_a_* and team_b_* score columns) into dst within a single
// transaction. Loose numeric columns are coerced; unreadable values become 0.
// Rows that reference unknown teams are skipped and counted.
func ImportLegacy(ctx context.Context, legacyPath string, dst domain.PersistentStore) (LegacyReport, error) {
	var report LegacyReport
	if strings.TrimSpace(legacyPath) == "" {
		return report, ErrLegacyPathRequired
	}
	db, err := sql.Open("sqlite", legacyPath)
	if err != nil {
		return report, fmt.Errorf("open legacy database: %w", err)
	}
	defer func() { _ = db.Close() }()

	teams, err := readRows(ctx, db, "teams")
	if err != nil {
		return report, err
	}
	players, err := readRows(ctx, db, "players")
	if err != nil {
		return report, err
	}
	matches, err := readRows(ctx, db, "matches")
	if err != nil {
		return report, err
	}

	_, err = dst.RunInTransaction(ctx, func(tx domain.Transaction) error {
		report = LegacyReport{}
		for _, row := range teams {
			name := strings.TrimSpace(overs.String(row["name"]))
			if name == "" {
				continue
			}
			if _, exists := tx.FindTeam(name); exists {
				continue
			}
			if _, err := tx.CreateTeam(domain.Team{Name: name, ShortCode: overs.String(row["short_name"])}); err != nil {
				return err
			}
			report.Teams++
		}
		for _, row := range players {
			p := legacyPlayer(row)
			if _, ok := tx.FindTeam(p.Team); !ok || p.Name == "" {
				report.SkippedPlayers++
				continue
			}
			if _, exists := tx.FindPlayer(p.Team, p.Name); exists {
				report.SkippedPlayers++
				continue
			}
			if _, err := tx.CreatePlayer(p); err != nil {
				return err
			}
			report.Players++
		}
		for _, row := range matches {
			m := legacyMatch(row)
			_, okA := tx.FindTeam(m.TeamA)
			_, okB := tx.FindTeam(m.TeamB)
			if !okA || !okB {
				report.SkippedMatches++
				continue
			}
			if _, exists := tx.FindMatch(m.ID); exists {
				report.SkippedMatches++
				continue
			}
			if _, err := tx.CreateMatch(m); err != nil {
				return err
			}
			report.Matches++
		}
		return nil
	})
	if err != nil {
		return LegacyReport{}, fmt.Errorf("import legacy: %w", err)
	}
	return report, nil
}

// readRows loads every row of table as a column-name map. Columns added by
// later migrations may be missing; callers read them as nil.
func readRows(ctx context.Context, db *sql.DB, table string) ([]map[string]any, error) {
	rows, err := db.QueryContext(ctx, `SELECT * FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func legacyPlayer(row map[string]any) domain.Player {
	p := domain.Player{
		Name:  strings.TrimSpace(overs.String(row["player_name"])),
		Team:  strings.TrimSpace(overs.String(row["team_name"])),
		Runs:  nonNegative(overs.Int(row["runs"])),
		Balls: nonNegative(overs.Int(row["balls"])),
		Fours: nonNegative(overs.Int(row["fours"])),
		Sixes: nonNegative(overs.Int(row["sixes"])),
	}
	p.Out, p.OutReason = parseOutStatus(overs.String(row["out_status"]))
	return p
}

// parseOutStatus reads "Not Out", "Out" and "Out (B)" forms.
func parseOutStatus(status string) (bool, string) {
	status = strings.TrimSpace(status)
	if !strings.HasPrefix(status, "Out") {
		return false, ""
	}
	rest := strings.TrimSpace(strings.TrimPrefix(status, "Out"))
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	return true, strings.TrimSpace(rest)
}

func legacyMatch(row map[string]any) domain.Match {
	m := domain.Match{
		TeamA:            strings.TrimSpace(overs.String(row["team_a"])),
		TeamB:            strings.TrimSpace(overs.String(row["team_b"])),
		Status:           legacyStatus(overs.String(row["status"])),
		BattingTeam:      strings.TrimSpace(overs.String(row["batting_team"])),
		Target:           nonNegative(overs.Int(row["target"])),
		FirstInningsTeam: overs.String(row["first_innings_team"]),
		FirstInningsRuns: nonNegative(overs.Int(row["first_innings_runs"])),
		CurrentBowler:    overs.String(row["current_bowler_name"]),
		ScoreA: domain.Score{
			Runs:    nonNegative(overs.Int(row["team_a_runs"])),
			Wickets: nonNegative(overs.Int(row["team_a_wickets"])),
			Overs:   normaliseOvers(row["team_a_overs"]),
		},
		ScoreB: domain.Score{
			Runs:    nonNegative(overs.Int(row["team_b_runs"])),
			Wickets: nonNegative(overs.Int(row["team_b_wickets"])),
			Overs:   normaliseOvers(row["team_b_overs"]),
		},
	}
	m.ID = "legacy-" + strconv.Itoa(overs.Int(row["id"]))
	m.CreatedAt = legacyTime(row["created_at"])
	switch winner := strings.TrimSpace(overs.String(row["winner"])); winner {
	case "":
	case LegacyDrawWinner:
		m.Drawn = true
	default:
		m.Winner = winner
	}
	if m.BattingTeam == "" {
		m.BattingTeam = m.TeamA
	}
	if m.Status == domain.MatchCompleted {
		m.CurrentBowler = ""
	}
	return m
}

func legacyStatus(raw string) domain.MatchStatus {
	switch domain.MatchStatus(strings.TrimSpace(raw)) {
	case domain.MatchLive:
		return domain.MatchLive
	case domain.MatchCompleted:
		return domain.MatchCompleted
	default:
		return domain.MatchScheduled
	}
}

// normaliseOvers re-encodes a stored overs value so the ball digit is in range.
func normaliseOvers(v any) float64 {
	return overs.BallsToOvers(overs.OversToBalls(overs.Float(v)))
}

var legacyTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func legacyTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	raw := strings.TrimSpace(overs.String(v))
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
