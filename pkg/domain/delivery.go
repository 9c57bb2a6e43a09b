package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DismissalKind names how a batsman was dismissed. Kinds outside the
// canonical set are accepted as free text.
type DismissalKind string

// Canonical dismissal kinds offered by the scorer.
const (
	DismissalBowled       DismissalKind = "Bowled"
	DismissalCaught       DismissalKind = "Catch Out"
	DismissalRunOut       DismissalKind = "Run Out"
	DismissalNoBallRunOut DismissalKind = "No Ball Run Out"
	// DismissalNoBall labels a no-ball delivery in the commentary; it is not a
	// dismissal on its own.
	DismissalNoBall DismissalKind = "No Ball"
)

var dismissalCodes = map[DismissalKind]string{
	DismissalBowled:       "B",
	DismissalCaught:       "C",
	DismissalRunOut:       "R",
	DismissalNoBallRunOut: "NBO",
}

// Code returns the short code recorded in a batsman's status, if any.
func (k DismissalKind) Code() string {
	return dismissalCodes[k]
}

// Label returns the commentary label for the dismissal.
func (k DismissalKind) Label(wicket bool) string {
	if k != "" {
		return string(k)
	}
	if wicket {
		return "Wicket"
	}
	return ""
}

// Delivery describes the outcome of one ball.
//
// TotalRuns is everything added to the batting side's total; BatsmanRuns is
// the portion credited to the striker when CreditBatsman is set. Extra marks a
// wide or no-ball, which is not one of the over's six legal balls.
type Delivery struct {
	TotalRuns       int           `json:"total_runs"`
	BatsmanRuns     int           `json:"batsman_runs"`
	CreditBatsman   bool          `json:"credit_batsman"`
	Extra           bool          `json:"extra"`
	Wicket          bool          `json:"wicket"`
	DismissedPlayer string        `json:"dismissed_player,omitempty"`
	Dismissal       DismissalKind `json:"dismissal,omitempty"`
}

// ErrInvalidDelivery is wrapped by Validate failures.
var ErrInvalidDelivery = errors.New("invalid delivery")

// Validate checks the record is internally consistent.
func (d Delivery) Validate() error {
	switch {
	case d.TotalRuns < 0:
		return fmt.Errorf("%w: negative total runs %d", ErrInvalidDelivery, d.TotalRuns)
	case d.BatsmanRuns < 0:
		return fmt.Errorf("%w: negative batsman runs %d", ErrInvalidDelivery, d.BatsmanRuns)
	case d.CreditBatsman && d.BatsmanRuns > d.TotalRuns:
		return fmt.Errorf("%w: batsman runs %d exceed total %d", ErrInvalidDelivery, d.BatsmanRuns, d.TotalRuns)
	case d.DismissedPlayer != "" && !d.Wicket:
		return fmt.Errorf("%w: dismissed player without a wicket", ErrInvalidDelivery)
	}
	return nil
}

// CreditedRuns is the run value added to the striker's tally.
func (d Delivery) CreditedRuns() int {
	if !d.CreditBatsman {
		return 0
	}
	return d.BatsmanRuns
}

// ChargedToBowler is the run value added to the bowler's figures. Runs on a
// legal ball that are not credited to the batsman (byes) are not charged.
func (d Delivery) ChargedToBowler() int {
	if !d.CreditBatsman && !d.Extra {
		return 0
	}
	return d.TotalRuns
}

// Describe renders the commentary line for the delivery.
func (d Delivery) Describe(striker string) string {
	name := striker
	if name == "" {
		name = "Team"
	}
	parts := []string{fmt.Sprintf("%s → %d", name, d.TotalRuns)}
	if d.Wicket {
		parts = append(parts, "W")
	}
	if d.Extra {
		parts = append(parts, "(extra)")
	}
	if label := d.Dismissal.Label(d.Wicket); label != "" {
		parts = append(parts, "["+label+"]")
	}
	return strings.Join(parts, " ")
}

// DotBall is a legal ball with no run.
func DotBall() Delivery { return RunsOffBat(0) }

// RunsOffBat credits runs to the striker off a legal ball.
func RunsOffBat(runs int) Delivery {
	return Delivery{TotalRuns: runs, BatsmanRuns: runs, CreditBatsman: true}
}

// Byes are runs on a legal ball that the striker does not get credit for.
func Byes(runs int) Delivery {
	return Delivery{TotalRuns: runs}
}

// Wide adds runs to the total without a legal ball or batsman credit.
func Wide(runs int) Delivery {
	if runs < 1 {
		runs = 1
	}
	return Delivery{TotalRuns: runs, Extra: true}
}

// NoBall adds the one-run penalty plus completed runs. When credit is true
// the completed runs go to the striker, otherwise to extras.
func NoBall(completed int, credit bool) Delivery {
	d := Delivery{TotalRuns: 1 + completed, Extra: true, Dismissal: DismissalNoBall}
	if credit {
		d.CreditBatsman = true
		d.BatsmanRuns = completed
	}
	return d
}

// NoBallPreset names the scorer's quick no-ball outcomes.
type NoBallPreset string

// Quick no-ball outcomes.
const (
	NoBallMiss     NoBallPreset = "miss"
	NoBallPlusOne  NoBallPreset = "plus_one"
	NoBallPlusTwo  NoBallPreset = "plus_two"
	NoBallBoundary NoBallPreset = "four"
	NoBallSix      NoBallPreset = "six"
)

// NoBallFromPreset expands a quick outcome; runs off the bat are credited to
// the striker.
func NoBallFromPreset(p NoBallPreset) (Delivery, error) {
	switch p {
	case NoBallMiss:
		return NoBall(0, false), nil
	case NoBallPlusOne:
		return NoBall(1, true), nil
	case NoBallPlusTwo:
		return NoBall(2, true), nil
	case NoBallBoundary:
		return NoBall(4, true), nil
	case NoBallSix:
		return NoBall(6, true), nil
	}
	return Delivery{}, fmt.Errorf("%w: unknown no-ball preset %q", ErrInvalidDelivery, p)
}

// Bowled dismisses the striker.
func Bowled() Delivery {
	return Delivery{Wicket: true, CreditBatsman: true, Dismissal: DismissalBowled}
}

// Caught dismisses the striker.
func Caught() Delivery {
	return Delivery{Wicket: true, CreditBatsman: true, Dismissal: DismissalCaught}
}

// RunOut dismisses player after runs were completed off a legal ball.
func RunOut(player string, completed int) Delivery {
	return Delivery{
		TotalRuns:       completed,
		BatsmanRuns:     completed,
		CreditBatsman:   true,
		Wicket:          true,
		DismissedPlayer: player,
		Dismissal:       DismissalRunOut,
	}
}

// NoBallRunOut dismisses player off a no-ball after completed runs.
func NoBallRunOut(player string, completed int) Delivery {
	return Delivery{
		TotalRuns:       1 + completed,
		BatsmanRuns:     completed,
		CreditBatsman:   true,
		Extra:           true,
		Wicket:          true,
		DismissedPlayer: player,
		Dismissal:       DismissalNoBallRunOut,
	}
}
