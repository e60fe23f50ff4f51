package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrUnknownComponent     = errors.New("unknown score component")
	ErrInvalidTask          = errors.New("invalid task definition")
	ErrPreconditionNotMet   = errors.New("task is not claimable")
	ErrCommitFailure        = errors.New("score commit failed")
	ErrVerificationFailed   = errors.New("membership verification failed")
	ErrVerificationRequired = errors.New("task requires membership verification")
	ErrSelfReferral         = errors.New("self referral")
	ErrInvalidReferral      = errors.New("invalid referral payload")
	ErrNoTickets            = errors.New("no game tickets left")
	ErrFarmingActive        = errors.New("farming already in progress")
	ErrFarmingNotReady      = errors.New("farming session not finished")
	ErrFarmingNotStarted    = errors.New("farming not started")
)

// ConfigurationError reports an engine setting that makes an operation unsafe
// to perform, such as an invalid bot identity for invite links.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}
