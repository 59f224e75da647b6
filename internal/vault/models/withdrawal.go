package models

import (
	"fmt"
	"time"
)

// MaxWithdrawalRequests is the fixed number of request slots per deposit entry.
// Exhaustion is reported as ErrWithdrawalRequestLimitReached.
const MaxWithdrawalRequests = 10

// WithdrawalStatus is the lifecycle state of one request slot.
//
//	None -> Initiated -> Cooldown -> Ready -> Completed
//	Initiated | Cooldown | Ready -> Cancelled
//	Completed | Cancelled -> None (slot recycled)
type WithdrawalStatus uint8

const (
	WithdrawalStatusNone WithdrawalStatus = iota
	WithdrawalStatusInitiated
	WithdrawalStatusCooldown
	WithdrawalStatusReady
	WithdrawalStatusCompleted
	WithdrawalStatusCancelled
)

var withdrawalStatusNames = [...]string{
	WithdrawalStatusNone:      "none",
	WithdrawalStatusInitiated: "initiated",
	WithdrawalStatusCooldown:  "cooldown",
	WithdrawalStatusReady:     "ready",
	WithdrawalStatusCompleted: "completed",
	WithdrawalStatusCancelled: "cancelled",
}

func (s WithdrawalStatus) String() string {
	if int(s) < len(withdrawalStatusNames) {
		return withdrawalStatusNames[s]
	}
	return fmt.Sprintf("withdrawal_status(%d)", uint8(s))
}

func (s WithdrawalStatus) IsValid() bool {
	return int(s) < len(withdrawalStatusNames)
}

// IsLive reports whether a request in this status still reserves part of the balance.
func (s WithdrawalStatus) IsLive() bool {
	return s == WithdrawalStatusInitiated || s == WithdrawalStatusCooldown || s == WithdrawalStatusReady
}

func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusCompleted || s == WithdrawalStatusCancelled
}

// CanTransitionTo encodes the slot state machine.
func (s WithdrawalStatus) CanTransitionTo(target WithdrawalStatus) bool {
	switch s {
	case WithdrawalStatusNone:
		return target == WithdrawalStatusInitiated
	case WithdrawalStatusInitiated:
		return target == WithdrawalStatusCooldown || target == WithdrawalStatusCancelled
	case WithdrawalStatusCooldown:
		return target == WithdrawalStatusReady || target == WithdrawalStatusCancelled
	case WithdrawalStatusReady:
		return target == WithdrawalStatusCompleted || target == WithdrawalStatusCancelled
	case WithdrawalStatusCompleted, WithdrawalStatusCancelled:
		return target == WithdrawalStatusNone
	default:
		return false
	}
}

func (s WithdrawalStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid withdrawal status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *WithdrawalStatus) UnmarshalText(text []byte) error {
	for i, name := range withdrawalStatusNames {
		if name == string(text) {
			*s = WithdrawalStatus(i)
			return nil
		}
	}
	return fmt.Errorf("invalid withdrawal status %q", text)
}

// WithdrawalRequest is one slot of a deposit entry's request array.
// A slot in None carries a zero amount and timestamp.
type WithdrawalRequest struct {
	Amount      uint64           `json:"amount"`
	InitiatedAt time.Time        `json:"initiated_at"`
	Status      WithdrawalStatus `json:"status"`
}

// SlotRequest is a request together with its slot index, used for listings and
// for operation results.
type SlotRequest struct {
	Slot int `json:"slot"`
	WithdrawalRequest
}

// CooldownPolicy holds the timing constants of the request lifecycle. Both
// durations are measured from the request's initiation timestamp.
type CooldownPolicy struct {
	// InitiateDelay must elapse before Initiated advances to Cooldown.
	InitiateDelay time.Duration
	// CooldownPeriod must elapse before Cooldown advances to Ready.
	CooldownPeriod time.Duration
}

const DefaultWithdrawalCooldown = 24 * time.Hour

func DefaultCooldownPolicy() CooldownPolicy {
	return CooldownPolicy{CooldownPeriod: DefaultWithdrawalCooldown}
}

// ReadyAt is the earliest time the request can reach Ready.
func (p CooldownPolicy) ReadyAt(r WithdrawalRequest) time.Time {
	return r.InitiatedAt.Add(p.CooldownPeriod)
}

// next returns the status advance moves r to at now.
func (p CooldownPolicy) next(r WithdrawalRequest, now time.Time) (WithdrawalStatus, error) {
	elapsed := now.Sub(r.InitiatedAt)
	switch r.Status {
	case WithdrawalStatusInitiated:
		if elapsed < p.InitiateDelay {
			return r.Status, ErrCooldownNotElapsed
		}
		return WithdrawalStatusCooldown, nil
	case WithdrawalStatusCooldown:
		if elapsed < p.CooldownPeriod {
			return r.Status, ErrCooldownNotElapsed
		}
		return WithdrawalStatusReady, nil
	default:
		return r.Status, ErrInvalidWithdrawalTransition
	}
}
