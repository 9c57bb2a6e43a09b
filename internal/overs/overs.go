// Package overs converts between the decimal overs notation used on a
// scoreboard (4.3 = four overs and three legal balls) and ball counts, and
// derives rates from them.
package overs

import (
	"fmt"
	"math"
)

// BallsPerOver is the number of legal deliveries in one over.
const BallsPerOver = 6

// Placeholder is rendered in place of a rate that cannot be computed yet.
const Placeholder = "—"

// BallsToOvers encodes whole overs and legal balls as a decimal. legalBalls
// must already be normalised into [0,5]; anything else is a caller bug.
func BallsToOvers(whole, legalBalls int) float64 {
	if legalBalls < 0 || legalBalls >= BallsPerOver {
		panic(fmt.Sprintf("overs: legal balls %d outside [0,5]", legalBalls))
	}
	if whole < 0 {
		panic(fmt.Sprintf("overs: negative whole overs %d", whole))
	}
	return float64(whole) + float64(legalBalls)/10
}

// OversToBalls decodes a decimal overs value. Stale or corrupt values fail
// closed: negatives decode to zero and the ball digit is clamped to [0,5].
func OversToBalls(value float64) (whole, legalBalls int) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, 0
	}
	whole = int(value)
	legalBalls = int(math.Round((value - float64(whole)) * 10))
	if legalBalls >= 10 {
		// 4.96 style rounding spill lands on the next whole over.
		whole++
		legalBalls = 0
	}
	if legalBalls > BallsPerOver-1 {
		legalBalls = BallsPerOver - 1
	}
	return whole, legalBalls
}

// TotalBalls returns the number of legal balls represented by value.
func TotalBalls(value float64) int {
	whole, balls := OversToBalls(value)
	return whole*BallsPerOver + balls
}

// FromBalls encodes a raw legal-ball count.
func FromBalls(balls int) float64 {
	if balls <= 0 {
		return 0
	}
	return BallsToOvers(balls/BallsPerOver, balls%BallsPerOver)
}

// AdvanceOneBall adds one legal ball, rolling the sixth into the next whole
// over and reporting that the over completed.
func AdvanceOneBall(value float64) (float64, bool) {
	whole, balls := OversToBalls(value)
	balls++
	if balls == BallsPerOver {
		return BallsToOvers(whole+1, 0), true
	}
	return BallsToOvers(whole, balls), false
}

// Format renders value in conventional "overs.balls" notation.
func Format(value float64) string {
	whole, balls := OversToBalls(value)
	return fmt.Sprintf("%d.%d", whole, balls)
}

// FormatBalls renders a raw ball count in "overs.balls" notation.
func FormatBalls(balls int) string {
	if balls < 0 {
		balls = 0
	}
	return fmt.Sprintf("%d.%d", balls/BallsPerOver, balls%BallsPerOver)
}

// RunRate returns runs per over. ok is false while no legal ball has been
// bowled; callers show Placeholder rather than zero.
func RunRate(runs int, value float64) (rate float64, ok bool) {
	return perOver(runs, TotalBalls(value))
}

// Economy returns runs conceded per over for a bowler's ball count.
func Economy(runs, balls int) (float64, bool) {
	return perOver(runs, balls)
}

// RequiredRate returns the runs per over needed to score need runs from
// ballsLeft balls.
func RequiredRate(need, ballsLeft int) (float64, bool) {
	if need <= 0 {
		return 0, true
	}
	return perOver(need, ballsLeft)
}

func perOver(runs, balls int) (float64, bool) {
	if balls <= 0 {
		return 0, false
	}
	return float64(runs) / (float64(balls) / BallsPerOver), true
}

// FormatRate renders a rate with two decimals or Placeholder.
func FormatRate(rate float64, ok bool) string {
	if !ok {
		return Placeholder
	}
	return fmt.Sprintf("%.2f", rate)
}
