package handler

import (
	"time"

	"custody/internal/vault/models"
	"custody/internal/vault/ports"
)

type RegistryResponse struct {
	Initialized   bool       `json:"initialized"`
	NextVaultID   uint64     `json:"next_vault_id"`
	InitializedAt *time.Time `json:"initialized_at,omitempty"`
}

func FromRegistry(r *models.Registry) *RegistryResponse {
	resp := &RegistryResponse{
		Initialized: r.Initialized,
		NextVaultID: uint64(r.NextVaultID),
	}
	if r.Initialized {
		at := r.InitializedAt
		resp.InitializedAt = &at
	}
	return resp
}

type GuardianResponse struct {
	Principal string    `json:"principal"`
	Active    bool      `json:"active"`
	AddedAt   time.Time `json:"added_at"`
}

// VaultResponse is the public view of a vault. Version stays internal.
type VaultResponse struct {
	ID             uint64             `json:"id"`
	Creator        string             `json:"creator"`
	Asset          string             `json:"asset"`
	MaxDeposit     uint64             `json:"max_deposit"`
	Status         string             `json:"status"`
	Frozen         bool               `json:"frozen"`
	Closed         bool               `json:"closed"`
	Guardians      []GuardianResponse `json:"guardians"`
	CustodyAccount string             `json:"custody_account"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func FromVault(v *models.Vault) *VaultResponse {
	guardians := make([]GuardianResponse, 0, v.Guardians.Len())
	for _, g := range v.Guardians.List() {
		guardians = append(guardians, GuardianResponse{
			Principal: g.Principal.String(),
			Active:    g.Active,
			AddedAt:   g.AddedAt,
		})
	}
	return &VaultResponse{
		ID:             uint64(v.ID),
		Creator:        v.Creator.String(),
		Asset:          v.Asset.String(),
		MaxDeposit:     v.MaxDeposit,
		Status:         v.Status(),
		Frozen:         v.Frozen,
		Closed:         v.Closed,
		Guardians:      guardians,
		CustodyAccount: v.CustodyAccount.String(),
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}

type VaultListResponse struct {
	Vaults []*VaultResponse `json:"vaults"`
}

func FromVaults(vaults []*models.Vault) *VaultListResponse {
	out := make([]*VaultResponse, 0, len(vaults))
	for _, v := range vaults {
		out = append(out, FromVault(v))
	}
	return &VaultListResponse{Vaults: out}
}

// WithdrawalResponse describes one request slot. ReadyAt is set while the
// request is still waiting out its cooldown.
type WithdrawalResponse struct {
	Slot        int        `json:"slot"`
	Amount      uint64     `json:"amount"`
	Status      string     `json:"status"`
	InitiatedAt time.Time  `json:"initiated_at"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
}

func FromSlotRequest(req models.SlotRequest, policy models.CooldownPolicy) *WithdrawalResponse {
	resp := &WithdrawalResponse{
		Slot:        req.Slot,
		Amount:      req.Amount,
		Status:      req.Status.String(),
		InitiatedAt: req.InitiatedAt,
	}
	if req.Status == models.WithdrawalStatusInitiated || req.Status == models.WithdrawalStatusCooldown {
		at := policy.ReadyAt(req.WithdrawalRequest)
		resp.ReadyAt = &at
	}
	return resp
}

type WithdrawalListResponse struct {
	Requests []*WithdrawalResponse `json:"requests"`
}

func FromSlotRequests(reqs []models.SlotRequest, policy models.CooldownPolicy) *WithdrawalListResponse {
	out := make([]*WithdrawalResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, FromSlotRequest(r, policy))
	}
	return &WithdrawalListResponse{Requests: out}
}

type DepositResponse struct {
	VaultID        uint64                `json:"vault_id"`
	Depositor      string                `json:"depositor"`
	Amount         uint64                `json:"amount"`
	Committed      uint64                `json:"committed"`
	Available      uint64                `json:"available"`
	ReceiptAccount string                `json:"receipt_account"`
	Requests       []*WithdrawalResponse `json:"requests"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func FromDeposit(e *models.DepositEntry, policy models.CooldownPolicy) *DepositResponse {
	return &DepositResponse{
		VaultID:        uint64(e.VaultID),
		Depositor:      e.Depositor.String(),
		Amount:         e.Amount,
		Committed:      e.Committed(),
		Available:      e.Available(),
		ReceiptAccount: e.ReceiptAccount.String(),
		Requests:       FromSlotRequests(e.ListRequests(), policy).Requests,
		UpdatedAt:      e.UpdatedAt,
	}
}

type DepositListResponse struct {
	Deposits []*DepositResponse `json:"deposits"`
}

func FromDeposits(entries []*models.DepositEntry, policy models.CooldownPolicy) *DepositListResponse {
	out := make([]*DepositResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromDeposit(e, policy))
	}
	return &DepositListResponse{Deposits: out}
}

type BalanceResponse struct {
	VaultID   uint64 `json:"vault_id"`
	Depositor string `json:"depositor"`
	Amount    uint64 `json:"amount"`
}

type WalletResponse struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

func FromAccount(a ports.Account, balance uint64) *WalletResponse {
	return &WalletResponse{
		Address: a.Address.String(),
		Owner:   a.Owner.String(),
		Asset:   a.Asset.String(),
		Balance: balance,
	}
}
