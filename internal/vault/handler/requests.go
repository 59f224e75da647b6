package handler

import (
	"strings"

	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// CreateVaultRequest is the body of POST /vaults.
type CreateVaultRequest struct {
	Asset      string `json:"asset"`
	MaxDeposit uint64 `json:"max_deposit"`

	parsedAsset id.AssetID
}

// Validate implements httputil.Validatable.
func (r *CreateVaultRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Asset = strings.TrimSpace(r.Asset)
	if r.Asset == "" {
		return dErrors.New(dErrors.CodeValidation, "asset is required")
	}
	asset, err := id.ParseAssetID(r.Asset)
	if err != nil {
		return err
	}
	r.parsedAsset = asset
	return nil
}

func (r *CreateVaultRequest) ParsedAsset() id.AssetID {
	return r.parsedAsset
}

// AddGuardianRequest is the body of POST /vaults/{id}/guardians.
type AddGuardianRequest struct {
	Guardian string `json:"guardian"`

	parsedGuardian id.PrincipalID
}

func (r *AddGuardianRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Guardian = strings.TrimSpace(r.Guardian)
	if r.Guardian == "" {
		return dErrors.New(dErrors.CodeValidation, "guardian is required")
	}
	guardian, err := id.ParsePrincipalID(r.Guardian)
	if err != nil {
		return err
	}
	r.parsedGuardian = guardian
	return nil
}

func (r *AddGuardianRequest) ParsedGuardian() id.PrincipalID {
	return r.parsedGuardian
}

// DepositRequest is the body of POST /vaults/{id}/deposits. Amount checks are
// left to the service so every entry point reports them the same way.
type DepositRequest struct {
	Amount        uint64 `json:"amount"`
	SourceAccount string `json:"source_account"`

	parsedSource id.Address
}

func (r *DepositRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.SourceAccount = strings.TrimSpace(r.SourceAccount)
	if r.SourceAccount == "" {
		return dErrors.New(dErrors.CodeValidation, "source_account is required")
	}
	source, err := id.ParseAddress(r.SourceAccount)
	if err != nil {
		return err
	}
	r.parsedSource = source
	return nil
}

func (r *DepositRequest) ParsedSource() id.Address {
	return r.parsedSource
}

// InitiateWithdrawalRequest is the body of POST /vaults/{id}/withdrawals.
type InitiateWithdrawalRequest struct {
	Amount uint64 `json:"amount"`
}

func (r *InitiateWithdrawalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// CompleteWithdrawalRequest is the body of
// POST /vaults/{id}/withdrawals/{slot}/complete.
type CompleteWithdrawalRequest struct {
	DestinationAccount string `json:"destination_account"`

	parsedDestination id.Address
}

func (r *CompleteWithdrawalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.DestinationAccount = strings.TrimSpace(r.DestinationAccount)
	if r.DestinationAccount == "" {
		return dErrors.New(dErrors.CodeValidation, "destination_account is required")
	}
	dest, err := id.ParseAddress(r.DestinationAccount)
	if err != nil {
		return err
	}
	r.parsedDestination = dest
	return nil
}

func (r *CompleteWithdrawalRequest) ParsedDestination() id.Address {
	return r.parsedDestination
}

// OpenWalletRequest is the body of POST /dev/wallets.
type OpenWalletRequest struct {
	Asset string `json:"asset"`

	parsedAsset id.AssetID
}

func (r *OpenWalletRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	asset, err := id.ParseAssetID(strings.TrimSpace(r.Asset))
	if err != nil {
		return err
	}
	r.parsedAsset = asset
	return nil
}

// FundWalletRequest is the body of POST /dev/wallets/{address}/fund.
type FundWalletRequest struct {
	Amount uint64 `json:"amount"`
}

func (r *FundWalletRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}
