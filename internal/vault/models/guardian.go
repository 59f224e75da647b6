package models

import (
	"encoding/json"
	"time"

	id "custody/pkg/domain"
)

// MaxGuardians bounds the guardian set of a vault.
const MaxGuardians = 3

// Guardian is an admin delegated by a vault's creator. Suspended guardians
// keep their place in the set but are not admins.
type Guardian struct {
	Principal id.PrincipalID `json:"principal"`
	Active    bool           `json:"active"`
	AddedAt   time.Time      `json:"added_at"`
}

// GuardianSet is a bounded set of guardians keyed by principal, in insertion order.
// The zero value is an empty set.
type GuardianSet struct {
	members []Guardian
}

// NewGuardianSet rebuilds a set from persisted guardians, enforcing capacity
// and uniqueness.
func NewGuardianSet(guardians ...Guardian) (GuardianSet, error) {
	var s GuardianSet
	for _, g := range guardians {
		if err := s.insert(g); err != nil {
			return GuardianSet{}, err
		}
	}
	return s, nil
}

func (s GuardianSet) Len() int {
	return len(s.members)
}

func (s GuardianSet) IsFull() bool {
	return len(s.members) >= MaxGuardians
}

func (s GuardianSet) Contains(p id.PrincipalID) bool {
	return s.indexOf(p) >= 0
}

// IsActive reports whether p is a member and not suspended.
func (s GuardianSet) IsActive(p id.PrincipalID) bool {
	i := s.indexOf(p)
	return i >= 0 && s.members[i].Active
}

// Get returns the guardian record for p.
func (s GuardianSet) Get(p id.PrincipalID) (Guardian, bool) {
	i := s.indexOf(p)
	if i < 0 {
		return Guardian{}, false
	}
	return s.members[i], true
}

// List returns a copy of the members.
func (s GuardianSet) List() []Guardian {
	out := make([]Guardian, len(s.members))
	copy(out, s.members)
	return out
}

// Clone returns a set that shares no storage with s.
func (s GuardianSet) Clone() GuardianSet {
	return GuardianSet{members: s.List()}
}

// Add inserts an active guardian.
func (s *GuardianSet) Add(p id.PrincipalID, now time.Time) error {
	if p.IsNil() {
		return ErrInvalidGuardian
	}
	return s.insert(Guardian{Principal: p, Active: true, AddedAt: now})
}

// Remove deletes p from the set, freeing its slot.
func (s *GuardianSet) Remove(p id.PrincipalID) error {
	i := s.indexOf(p)
	if i < 0 {
		return ErrGuardianNotFound
	}
	s.members = append(s.members[:i:i], s.members[i+1:]...)
	return nil
}

// SetActive suspends (false) or reinstates (true) a guardian.
func (s *GuardianSet) SetActive(p id.PrincipalID, active bool) error {
	i := s.indexOf(p)
	if i < 0 {
		return ErrGuardianNotFound
	}
	if s.members[i].Active == active {
		if active {
			return ErrGuardianNotSuspended
		}
		return ErrGuardianAlreadySuspended
	}
	s.members[i].Active = active
	return nil
}

func (s *GuardianSet) insert(g Guardian) error {
	if s.indexOf(g.Principal) >= 0 {
		return ErrAlreadyGuardian
	}
	if s.IsFull() {
		return ErrGuardianListFull
	}
	s.members = append(s.members, g)
	return nil
}

func (s GuardianSet) indexOf(p id.PrincipalID) int {
	for i := range s.members {
		if s.members[i].Principal == p {
			return i
		}
	}
	return -1
}

func (s GuardianSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *GuardianSet) UnmarshalJSON(data []byte) error {
	var guardians []Guardian
	if err := json.Unmarshal(data, &guardians); err != nil {
		return err
	}
	set, err := NewGuardianSet(guardians...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
