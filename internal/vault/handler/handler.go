package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"custody/internal/vault/models"
	"custody/internal/vault/service"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/httputil"
	"custody/pkg/requestcontext"
)

// Service defines the vault operations exposed over HTTP.
type Service interface {
	InitializeRegistry(ctx context.Context, caller id.PrincipalID) (*models.Registry, error)
	GetRegistry(ctx context.Context) (*models.Registry, error)

	CreateVault(ctx context.Context, creator id.PrincipalID, asset id.AssetID, maxDeposit uint64) (*models.Vault, error)
	GetVault(ctx context.Context, vaultID id.VaultID) (*models.Vault, error)
	ListVaults(ctx context.Context) ([]*models.Vault, error)
	FreezeVault(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID) (*models.Vault, error)
	UnfreezeVault(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID) (*models.Vault, error)
	CloseVault(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID) (*models.Vault, error)
	AddGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (*models.Vault, error)
	RemoveGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (*models.Vault, error)
	SuspendGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (*models.Vault, error)
	ReinstateGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (*models.Vault, error)

	Deposit(ctx context.Context, req service.DepositRequest) (*models.DepositEntry, error)
	BalanceOf(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) (uint64, error)
	GetDeposit(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) (*models.DepositEntry, error)
	ListDeposits(ctx context.Context, vaultID id.VaultID) ([]*models.DepositEntry, error)

	InitiateWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, amount uint64) (models.SlotRequest, error)
	AdvanceWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, slot int) (models.SlotRequest, error)
	CompleteWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, slot int, destination id.Address) (models.SlotRequest, error)
	CancelWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, slot int) (models.SlotRequest, error)
	ListWithdrawalRequests(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) ([]models.SlotRequest, error)
	CooldownPolicy() models.CooldownPolicy
}

// Handler wires vault endpoints to the vault service. Every route expects
// the authenticated principal in the request context.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts vault endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry", h.HandleGetRegistry)
	r.Post("/registry/initialize", h.HandleInitializeRegistry)

	r.Route("/vaults", func(r chi.Router) {
		r.Post("/", h.HandleCreateVault)
		r.Get("/", h.HandleListVaults)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetVault)
			r.Post("/freeze", h.vaultTransition("freeze", h.service.FreezeVault))
			r.Post("/unfreeze", h.vaultTransition("unfreeze", h.service.UnfreezeVault))
			r.Post("/close", h.vaultTransition("close", h.service.CloseVault))

			r.Post("/guardians", h.HandleAddGuardian)
			r.Delete("/guardians/{guardian}", h.guardianChange("remove", h.service.RemoveGuardian))
			r.Post("/guardians/{guardian}/suspend", h.guardianChange("suspend", h.service.SuspendGuardian))
			r.Post("/guardians/{guardian}/reinstate", h.guardianChange("reinstate", h.service.ReinstateGuardian))

			r.Post("/deposits", h.HandleDeposit)
			r.Get("/deposits", h.HandleListDeposits)
			r.Get("/deposits/{depositor}", h.HandleGetDeposit)
			r.Get("/deposits/{depositor}/balance", h.HandleBalance)

			r.Post("/withdrawals", h.HandleInitiateWithdrawal)
			r.Get("/withdrawals", h.HandleListWithdrawals)
			r.Post("/withdrawals/{slot}/advance", h.slotTransition("advance", h.service.AdvanceWithdrawal))
			r.Post("/withdrawals/{slot}/complete", h.HandleCompleteWithdrawal)
			r.Post("/withdrawals/{slot}/cancel", h.slotTransition("cancel", h.service.CancelWithdrawal))
		})
	})
}

// HandleInitializeRegistry handles POST /registry/initialize.
func (h *Handler) HandleInitializeRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	reg, err := h.service.InitializeRegistry(ctx, caller)
	if err != nil {
		h.fail(ctx, w, "initialize registry", err, "caller", caller)
		return
	}
	h.logger.InfoContext(ctx, "registry initialized",
		"request_id", requestcontext.RequestID(ctx),
		"caller", caller,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRegistry(reg))
}

func (h *Handler) HandleGetRegistry(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.GetRegistry(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "get registry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistry(reg))
}

// HandleCreateVault handles POST /vaults.
func (h *Handler) HandleCreateVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateVaultRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	vault, err := h.service.CreateVault(ctx, caller, req.ParsedAsset(), req.MaxDeposit)
	if err != nil {
		h.fail(ctx, w, "create vault", err, "caller", caller, "asset", req.Asset)
		return
	}

	h.logger.InfoContext(ctx, "vault created",
		"request_id", requestID,
		"vault_id", vault.ID,
		"creator", caller,
		"asset", vault.Asset,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromVault(vault))
}

func (h *Handler) HandleListVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := h.service.ListVaults(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list vaults", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVaults(vaults))
}

func (h *Handler) HandleGetVault(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return
	}
	vault, err := h.service.GetVault(r.Context(), vaultID)
	if err != nil {
		h.fail(r.Context(), w, "get vault", err, "vault_id", vaultID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVault(vault))
}

type vaultOp func(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID) (*models.Vault, error)

// vaultTransition serves the admin-gated freeze, unfreeze and close routes.
func (h *Handler) vaultTransition(name string, op vaultOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := h.requireCaller(w, r)
		if !ok {
			return
		}
		vaultID, ok := h.vaultID(w, r)
		if !ok {
			return
		}
		vault, err := op(ctx, caller, vaultID)
		if err != nil {
			h.fail(ctx, w, name+" vault", err, "vault_id", vaultID, "caller", caller)
			return
		}
		h.logger.InfoContext(ctx, "vault "+name,
			"request_id", requestcontext.RequestID(ctx),
			"vault_id", vaultID,
			"caller", caller,
			"status", vault.Status(),
		)
		httputil.WriteJSON(w, http.StatusOK, FromVault(vault))
	}
}

// HandleAddGuardian handles POST /vaults/{id}/guardians.
func (h *Handler) HandleAddGuardian(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddGuardianRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	vault, err := h.service.AddGuardian(ctx, caller, vaultID, req.ParsedGuardian())
	if err != nil {
		h.fail(ctx, w, "add guardian", err, "vault_id", vaultID, "caller", caller, "guardian", req.Guardian)
		return
	}
	h.logger.InfoContext(ctx, "guardian added",
		"request_id", requestID,
		"vault_id", vaultID,
		"caller", caller,
		"guardian", req.Guardian,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromVault(vault))
}

type guardianOp func(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (*models.Vault, error)

func (h *Handler) guardianChange(name string, op guardianOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := h.requireCaller(w, r)
		if !ok {
			return
		}
		vaultID, ok := h.vaultID(w, r)
		if !ok {
			return
		}
		guardian, err := id.ParsePrincipalID(chi.URLParam(r, "guardian"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		vault, err := op(ctx, caller, vaultID, guardian)
		if err != nil {
			h.fail(ctx, w, name+" guardian", err, "vault_id", vaultID, "caller", caller, "guardian", guardian)
			return
		}
		h.logger.InfoContext(ctx, "guardian "+name,
			"request_id", requestcontext.RequestID(ctx),
			"vault_id", vaultID,
			"caller", caller,
			"guardian", guardian,
		)
		httputil.WriteJSON(w, http.StatusOK, FromVault(vault))
	}
}

// HandleDeposit handles POST /vaults/{id}/deposits. The caller is the depositor.
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DepositRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.Deposit(ctx, service.DepositRequest{
		VaultID:       vaultID,
		Depositor:     caller,
		Amount:        req.Amount,
		SourceAccount: req.ParsedSource(),
	})
	if err != nil {
		h.fail(ctx, w, "deposit", err, "vault_id", vaultID, "depositor", caller, "amount", req.Amount)
		return
	}

	h.logger.InfoContext(ctx, "deposit recorded",
		"request_id", requestID,
		"vault_id", vaultID,
		"depositor", caller,
		"amount", req.Amount,
		"balance", entry.Amount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDeposit(entry, h.service.CooldownPolicy()))
}

func (h *Handler) HandleListDeposits(w http.ResponseWriter, r *http.Request) {
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListDeposits(r.Context(), vaultID)
	if err != nil {
		h.fail(r.Context(), w, "list deposits", err, "vault_id", vaultID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDeposits(entries, h.service.CooldownPolicy()))
}

func (h *Handler) HandleGetDeposit(w http.ResponseWriter, r *http.Request) {
	vaultID, depositor, ok := h.depositKey(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetDeposit(r.Context(), vaultID, depositor)
	if err != nil {
		h.fail(r.Context(), w, "get deposit", err, "vault_id", vaultID, "depositor", depositor)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDeposit(entry, h.service.CooldownPolicy()))
}

// HandleBalance reports zero for principals that never deposited.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	vaultID, depositor, ok := h.depositKey(w, r)
	if !ok {
		return
	}
	amount, err := h.service.BalanceOf(r.Context(), vaultID, depositor)
	if err != nil {
		h.fail(r.Context(), w, "balance", err, "vault_id", vaultID, "depositor", depositor)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &BalanceResponse{
		VaultID:   uint64(vaultID),
		Depositor: depositor.String(),
		Amount:    amount,
	})
}

// HandleInitiateWithdrawal handles POST /vaults/{id}/withdrawals.
func (h *Handler) HandleInitiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[InitiateWithdrawalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	slot, err := h.service.InitiateWithdrawal(ctx, caller, vaultID, req.Amount)
	if err != nil {
		h.fail(ctx, w, "initiate withdrawal", err, "vault_id", vaultID, "depositor", caller, "amount", req.Amount)
		return
	}
	h.logger.InfoContext(ctx, "withdrawal initiated",
		"request_id", requestID,
		"vault_id", vaultID,
		"depositor", caller,
		"slot", slot.Slot,
		"amount", slot.Amount,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSlotRequest(slot, h.service.CooldownPolicy()))
}

// HandleListWithdrawals lists the caller's own requests.
func (h *Handler) HandleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return
	}
	reqs, err := h.service.ListWithdrawalRequests(r.Context(), vaultID, caller)
	if err != nil {
		h.fail(r.Context(), w, "list withdrawals", err, "vault_id", vaultID, "depositor", caller)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSlotRequests(reqs, h.service.CooldownPolicy()))
}

type slotOp func(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, slot int) (models.SlotRequest, error)

func (h *Handler) slotTransition(name string, op slotOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, vaultID, slot, ok := h.slotKey(w, r)
		if !ok {
			return
		}
		req, err := op(ctx, caller, vaultID, slot)
		if err != nil {
			h.fail(ctx, w, name+" withdrawal", err, "vault_id", vaultID, "depositor", caller, "slot", slot)
			return
		}
		h.logger.InfoContext(ctx, "withdrawal "+name,
			"request_id", requestcontext.RequestID(ctx),
			"vault_id", vaultID,
			"depositor", caller,
			"slot", slot,
			"status", req.Status.String(),
		)
		httputil.WriteJSON(w, http.StatusOK, FromSlotRequest(req, h.service.CooldownPolicy()))
	}
}

// HandleCompleteWithdrawal handles POST /vaults/{id}/withdrawals/{slot}/complete.
func (h *Handler) HandleCompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller, vaultID, slot, ok := h.slotKey(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[CompleteWithdrawalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req, err := h.service.CompleteWithdrawal(ctx, caller, vaultID, slot, body.ParsedDestination())
	if err != nil {
		h.fail(ctx, w, "complete withdrawal", err, "vault_id", vaultID, "depositor", caller, "slot", slot)
		return
	}
	h.logger.InfoContext(ctx, "withdrawal completed",
		"request_id", requestID,
		"vault_id", vaultID,
		"depositor", caller,
		"slot", slot,
		"amount", req.Amount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSlotRequest(req, h.service.CooldownPolicy()))
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (id.PrincipalID, bool) {
	caller := requestcontext.Principal(r.Context())
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return caller, true
}

func (h *Handler) vaultID(w http.ResponseWriter, r *http.Request) (id.VaultID, bool) {
	vaultID, err := id.ParseVaultID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return vaultID, true
}

func (h *Handler) depositKey(w http.ResponseWriter, r *http.Request) (id.VaultID, id.PrincipalID, bool) {
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return 0, "", false
	}
	depositor, err := id.ParsePrincipalID(chi.URLParam(r, "depositor"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, "", false
	}
	return vaultID, depositor, true
}

func (h *Handler) slotKey(w http.ResponseWriter, r *http.Request) (id.PrincipalID, id.VaultID, int, bool) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return "", 0, 0, false
	}
	vaultID, ok := h.vaultID(w, r)
	if !ok {
		return "", 0, 0, false
	}
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "slot must be an integer"))
		return "", 0, 0, false
	}
	return caller, vaultID, slot, true
}

// fail logs at warn for client errors and at error for internal ones.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, op+" failed", attrs...)
	}
	httputil.WriteError(w, err)
}
