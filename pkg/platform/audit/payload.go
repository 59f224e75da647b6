package audit

import (
	"encoding/json"
	"fmt"
	"time"

	id "custody/pkg/domain"
)

// Payload is the JSON document stored in the outbox and published to Kafka.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	VaultID   uint64 `json:"vault_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Asset     string `json:"asset,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	Slot      *int   `json:"slot,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewPayload encodes event under eventID. Slot is only carried by request events.
func NewPayload(eventID string, event Event) Payload {
	p := Payload{
		ID:        eventID,
		Category:  string(AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		VaultID:   uint64(event.VaultID),
		ActorID:   event.ActorID.String(),
		Subject:   event.Subject.String(),
		Asset:     event.Asset.String(),
		Amount:    event.Amount,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	switch AuditEvent(event.Action) {
	case EventWithdrawalInitiated, EventWithdrawalAdvanced,
		EventWithdrawalCancelled, EventVaultWithdrawal:
		slot := event.Slot
		p.Slot = &slot
	}
	return p
}

// DecodePayload parses a published outbox document.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("decode audit payload: %w", err)
	}
	if p.Action == "" {
		return Payload{}, fmt.Errorf("decode audit payload: missing action")
	}
	return p, nil
}

// Event converts the payload back into the domain event.
func (p Payload) Event() Event {
	ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
	event := Event{
		Category:  EventCategory(p.Category),
		Timestamp: ts,
		Action:    p.Action,
		VaultID:   id.VaultID(p.VaultID),
		ActorID:   id.PrincipalID(p.ActorID),
		Subject:   id.PrincipalID(p.Subject),
		Asset:     id.AssetID(p.Asset),
		Amount:    p.Amount,
		Reason:    p.Reason,
		RequestID: p.RequestID,
	}
	if p.Slot != nil {
		event.Slot = *p.Slot
	}
	return event
}
