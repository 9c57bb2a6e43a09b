package core

import (
	"errors"
	"fmt"

	"cricketcore/pkg/domain"
)

// RejectReason classifies why a scoring action was refused.
type RejectReason string

// Rejection reasons surfaced to callers.
const (
	ReasonMatchNotLive         RejectReason = "match_not_live"
	ReasonMatchCompleted       RejectReason = "match_completed"
	ReasonMatchNotScheduled    RejectReason = "match_not_scheduled"
	ReasonInningsComplete      RejectReason = "innings_complete"
	ReasonInningsStarted       RejectReason = "innings_started"
	ReasonAwaitingBowler       RejectReason = "awaiting_bowler"
	ReasonNotAwaitingBowler    RejectReason = "not_awaiting_bowler"
	ReasonInvalidDelivery      RejectReason = "invalid_delivery"
	ReasonDismissedNotAtCrease RejectReason = "dismissed_not_at_crease"
	ReasonNothingToUndo        RejectReason = "nothing_to_undo"
	ReasonBowlerNotFielding    RejectReason = "bowler_not_in_fielding_team"
	ReasonBatsmanNotBatting    RejectReason = "batsman_not_in_batting_team"
	ReasonBatsmanOut           RejectReason = "batsman_out"
	ReasonRoleConflict         RejectReason = "role_conflict"
	ReasonUnknownTeam          RejectReason = "unknown_team"
	ReasonSameTeams            RejectReason = "same_teams"
	ReasonInvalidOversLimit    RejectReason = "invalid_overs_limit"
	ReasonInvalidName          RejectReason = "invalid_name"
	ReasonUnknownDialog        RejectReason = "unknown_dialog"
)

// Rejection is returned when an action is refused because of the match
// state. Nothing is mutated when a Rejection is returned.
type Rejection struct {
	Reason  RejectReason
	Message string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return string(r.Reason)
	}
	return r.Message
}

func reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsRejection reports whether err carries the given reason.
func IsRejection(err error, reason RejectReason) bool {
	r, ok := AsRejection(err)
	return ok && r.Reason == reason
}

// ErrNotFound is returned when reference validation fails within transactional helpers.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is lets callers match the persistence sentinel.
func (e ErrNotFound) Is(target error) bool {
	return target == domain.ErrNotFound
}
