package services

import (
	"errors"
	"fmt"
)

// Validation errors. They never change state.
var (
	ErrEmptyName         = errors.New("name is empty")
	ErrDuplicateName     = errors.New("name already exists")
	ErrInvalidQuota      = errors.New("quota must be at least 1")
	ErrQuotaBelowAwarded = errors.New("quota is lower than the number of prizes already awarded")
	ErrTierNotFound      = errors.New("prize tier not found")
	ErrAlreadyAwarded    = errors.New("participant has already won a prize")
)

// ErrDrawActive is returned for pool or tier edits while a draw is running.
var ErrDrawActive = errors.New("a draw is in progress; edits are locked until it finishes")

// ErrDrawConflict means the reveal ran but the commit was refused, so no
// winners were recorded.
var ErrDrawConflict = errors.New("draw conflict: no winners were recorded")

// QuotaExceededError is returned by Commit when more names are offered than
// the tier has slots left.
type QuotaExceededError struct {
	Tier      string
	Requested int
	Remaining int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("tier %q has %d slots left, %d requested", e.Tier, e.Remaining, e.Requested)
}

// RejectReason says why a draw could not start.
type RejectReason string

const (
	ReasonDrawInProgress       RejectReason = "DrawInProgress"
	ReasonUnknownTier          RejectReason = "UnknownTier"
	ReasonEmptyPool            RejectReason = "EmptyPool"
	ReasonTierExhausted        RejectReason = "TierExhausted"
	ReasonInsufficientEligible RejectReason = "InsufficientEligible"
)

// DrawRejectedError is a recoverable precondition failure. The engine stays idle.
type DrawRejectedError struct {
	Tier   string
	Reason RejectReason
	// Needed and Available are set for ReasonInsufficientEligible.
	Needed    int
	Available int
}

func (e *DrawRejectedError) Error() string {
	switch e.Reason {
	case ReasonInsufficientEligible:
		return fmt.Sprintf("draw rejected for %q: need %d eligible participants, only %d available", e.Tier, e.Needed, e.Available)
	case ReasonDrawInProgress:
		return "draw rejected: another draw is in progress"
	default:
		return fmt.Sprintf("draw rejected for %q: %s", e.Tier, e.Reason)
	}
}

// IsRejected reports whether err is a DrawRejectedError with the given reason.
func IsRejected(err error, reason RejectReason) bool {
	var rej *DrawRejectedError
	return errors.As(err, &rej) && rej.Reason == reason
}
