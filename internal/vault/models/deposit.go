package models

import (
	"math"
	"time"

	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// DepositEntry is the ledger record of one depositor in one vault. It embeds
// the depositor's withdrawal request slots inline.
//
// Invariants:
//   - Amount grows only through Credit and shrinks only through ApplyCompletion
//   - Committed() <= Amount: live requests never reserve more than the balance
//   - a slot in WithdrawalStatusNone is free; at most one request per slot
//   - VaultID and Depositor are immutable after construction
type DepositEntry struct {
	VaultID        id.VaultID                               `json:"vault_id"`
	Depositor      id.PrincipalID                           `json:"depositor"`
	Amount         uint64                                   `json:"amount"`
	ReceiptAccount id.Address                               `json:"receipt_account"`
	Requests       [MaxWithdrawalRequests]WithdrawalRequest `json:"requests"`
	CreatedAt      time.Time                                `json:"created_at"`
	UpdatedAt      time.Time                                `json:"updated_at"`
	Version        int64                                    `json:"-"`
}

func NewDepositEntry(vaultID id.VaultID, depositor id.PrincipalID, receipt id.Address, now time.Time) (*DepositEntry, error) {
	if vaultID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "deposit vault id cannot be zero")
	}
	if depositor.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "depositor cannot be empty")
	}
	return &DepositEntry{
		VaultID:        vaultID,
		Depositor:      depositor,
		ReceiptAccount: receipt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanCredit validates a deposit amount against the current balance.
func (e *DepositEntry) CanCredit(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if e.Amount > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	return nil
}

// ApplyCredit must only be called after CanCredit returns nil.
func (e *DepositEntry) ApplyCredit(amount uint64, now time.Time) {
	e.Amount += amount
	e.UpdatedAt = now
}

func (e *DepositEntry) Credit(amount uint64, now time.Time) error {
	if err := e.CanCredit(amount); err != nil {
		return err
	}
	e.ApplyCredit(amount, now)
	return nil
}

// Committed is the sum of live request amounts.
func (e *DepositEntry) Committed() uint64 {
	var total uint64
	for _, r := range e.Requests {
		if r.Status.IsLive() {
			total += r.Amount
		}
	}
	return total
}

// Available is the part of the balance not reserved by live requests.
func (e *DepositEntry) Available() uint64 {
	committed := e.Committed()
	if committed >= e.Amount {
		return 0
	}
	return e.Amount - committed
}

// LiveCount is the number of occupied slots.
func (e *DepositEntry) LiveCount() int {
	n := 0
	for _, r := range e.Requests {
		if r.Status != WithdrawalStatusNone {
			n++
		}
	}
	return n
}

// Initiate reserves amount in the first free slot. Funds do not move.
func (e *DepositEntry) Initiate(amount uint64, now time.Time) (SlotRequest, error) {
	if amount == 0 {
		return SlotRequest{}, ErrInvalidAmount
	}
	if amount > e.Available() {
		return SlotRequest{}, ErrInsufficientBalance
	}
	for i := range e.Requests {
		if e.Requests[i].Status != WithdrawalStatusNone {
			continue
		}
		e.Requests[i] = WithdrawalRequest{
			Amount:      amount,
			InitiatedAt: now,
			Status:      WithdrawalStatusInitiated,
		}
		e.UpdatedAt = now
		return SlotRequest{Slot: i, WithdrawalRequest: e.Requests[i]}, nil
	}
	return SlotRequest{}, ErrWithdrawalRequestLimitReached
}

// Request returns the occupied slot.
func (e *DepositEntry) Request(slot int) (SlotRequest, error) {
	if slot < 0 || slot >= MaxWithdrawalRequests {
		return SlotRequest{}, ErrInvalidSlot
	}
	r := e.Requests[slot]
	if r.Status == WithdrawalStatusNone {
		return SlotRequest{}, ErrWithdrawalRequestNotFound
	}
	return SlotRequest{Slot: slot, WithdrawalRequest: r}, nil
}

// Advance moves a request one step along Initiated -> Cooldown -> Ready once
// the policy's timing allows it.
func (e *DepositEntry) Advance(slot int, now time.Time, p CooldownPolicy) (SlotRequest, error) {
	req, err := e.Request(slot)
	if err != nil {
		return SlotRequest{}, err
	}
	next, err := p.next(req.WithdrawalRequest, now)
	if err != nil {
		return SlotRequest{}, err
	}
	e.Requests[slot].Status = next
	e.UpdatedAt = now
	return SlotRequest{Slot: slot, WithdrawalRequest: e.Requests[slot]}, nil
}

// CanComplete returns the Ready request in slot when it can be paid out.
func (e *DepositEntry) CanComplete(slot int) (SlotRequest, error) {
	req, err := e.Request(slot)
	if err != nil {
		return SlotRequest{}, err
	}
	if !req.Status.CanTransitionTo(WithdrawalStatusCompleted) {
		return SlotRequest{}, ErrInvalidWithdrawalTransition
	}
	if req.Amount > e.Amount {
		return SlotRequest{}, ErrInsufficientBalance
	}
	return req, nil
}

// ApplyCompletion debits the balance and recycles the slot. It returns the
// request as Completed. Must only be called after CanComplete returns nil.
func (e *DepositEntry) ApplyCompletion(slot int, now time.Time) SlotRequest {
	done := SlotRequest{Slot: slot, WithdrawalRequest: e.Requests[slot]}
	done.Status = WithdrawalStatusCompleted
	e.Amount -= done.Amount
	e.Requests[slot] = WithdrawalRequest{}
	e.UpdatedAt = now
	return done
}

// Cancel drops a live request and recycles the slot. No funds move.
func (e *DepositEntry) Cancel(slot int, now time.Time) (SlotRequest, error) {
	req, err := e.Request(slot)
	if err != nil {
		return SlotRequest{}, err
	}
	if !req.Status.CanTransitionTo(WithdrawalStatusCancelled) {
		return SlotRequest{}, ErrInvalidWithdrawalTransition
	}
	req.Status = WithdrawalStatusCancelled
	e.Requests[slot] = WithdrawalRequest{}
	e.UpdatedAt = now
	return req, nil
}

// ListRequests returns the occupied slots in slot order.
func (e *DepositEntry) ListRequests() []SlotRequest {
	out := make([]SlotRequest, 0, MaxWithdrawalRequests)
	for i, r := range e.Requests {
		if r.Status == WithdrawalStatusNone {
			continue
		}
		out = append(out, SlotRequest{Slot: i, WithdrawalRequest: r})
	}
	return out
}

// Clone returns a copy; the request array is copied by value.
func (e *DepositEntry) Clone() *DepositEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
