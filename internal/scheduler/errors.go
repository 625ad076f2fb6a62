package scheduler

import (
	"errors"

	"github.com/quantumlayer-dev/controlplane/internal/cperrors"
)

// The four scheduling failure reasons spec.md §4.2 names. Each is a
// cperrors.Error of Kind SchedulingFailure with a distinct Reason so
// callers can branch without string-matching messages.
const (
	ReasonUnknownTier        = "unknown_tier"
	ReasonNoHealthyCandidates = "no_healthy_candidates"
	ReasonNoGatePassers      = "no_gate_passers"
	ReasonEmptyPool          = "empty_pool"
)

func errUnknownTier(tier string) error {
	return cperrors.Wrap(cperrors.SchedulingFailure, ReasonUnknownTier, errors.New("tier "+tier))
}

func errEmptyPool(cell string) error {
	return cperrors.Wrap(cperrors.SchedulingFailure, ReasonEmptyPool, errors.New("no candidates configured for cell "+cell))
}

func errNoHealthyCandidates() error {
	return cperrors.New(cperrors.SchedulingFailure, ReasonNoHealthyCandidates)
}

func errNoGatePassers() error {
	return cperrors.New(cperrors.SchedulingFailure, ReasonNoGatePassers)
}

// FailureReason reports the scheduling-failure reason tag from an
// error produced by this package, or "" if err is not one of ours.
func FailureReason(err error) string {
	ce, ok := err.(*cperrors.Error)
	if !ok || ce.Kind != cperrors.SchedulingFailure {
		return ""
	}
	return ce.Reason
}
