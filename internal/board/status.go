package board

import (
	"errors"

	"frontdesk-service/internal/models"
)

var (
	// ErrUnknownStatus indicates a transition target outside the status set
	ErrUnknownStatus = errors.New("unknown group status")

	// ErrSameStatus indicates a transition to the group's current status.
	// Callers treat it as a silent no-op, not a failure.
	ErrSameStatus = errors.New("target status equals current status")
)

// CanonicalFlow is the expected forward path of a group across the board.
// Explicit staff actions may still move a group to any status; the flow
// only drives "advance" conveniences like the ARRIVED shortcut.
var CanonicalFlow = []models.GroupStatus{
	models.StatusScheduled,
	models.StatusConfirmed,
	models.StatusWalkIn,
	models.StatusArrived,
	models.StatusInService,
	models.StatusReadyToPay,
	models.StatusCompleted,
}

// KnownStatus reports whether s is a member of the status set
func KnownStatus(s models.GroupStatus) bool {
	for _, st := range CanonicalFlow {
		if st == s {
			return true
		}
	}
	return false
}

// ValidateTransition is the single decision point for transition policy.
// Any known target is allowed except a no-op to the current status.
func ValidateTransition(from, to models.GroupStatus) error {
	if !KnownStatus(to) {
		return ErrUnknownStatus
	}
	if from == to {
		return ErrSameStatus
	}
	return nil
}

// NextInFlow returns the status after s on the canonical flow
func NextInFlow(s models.GroupStatus) (models.GroupStatus, bool) {
	for i, st := range CanonicalFlow[:len(CanonicalFlow)-1] {
		if st == s {
			return CanonicalFlow[i+1], true
		}
	}
	return "", false
}
