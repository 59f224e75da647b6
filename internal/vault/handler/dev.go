package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/httputil"
	"custody/pkg/platform/sentinel"
	"custody/pkg/requestcontext"
)

// Wallets opens and resolves personal token accounts.
type Wallets interface {
	OpenWallet(ctx context.Context, owner id.PrincipalID, asset id.AssetID) (ports.Account, error)
	Lookup(ctx context.Context, addr id.Address) (ports.Account, error)
}

// Funds credits and reads token balances of the bank.
type Funds interface {
	Fund(ctx context.Context, addr id.Address, amount uint64) error
	Balance(ctx context.Context, addr id.Address) (uint64, error)
}

// DevHandler exposes wallet helpers so a local setup can be driven end to
// end without an external asset system. Mount it only behind the admin token.
type DevHandler struct {
	wallets Wallets
	funds   Funds
	logger  *slog.Logger
}

func NewDev(wallets Wallets, funds Funds, logger *slog.Logger) *DevHandler {
	return &DevHandler{wallets: wallets, funds: funds, logger: logger}
}

func (h *DevHandler) Register(r chi.Router) {
	r.Post("/dev/wallets", h.HandleOpenWallet)
	r.Get("/dev/wallets/{address}", h.HandleGetWallet)
	r.Post("/dev/wallets/{address}/fund", h.HandleFundWallet)
}

// HandleOpenWallet opens the caller's wallet for an asset. Opening twice
// returns the same wallet.
func (h *DevHandler) HandleOpenWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Principal(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[OpenWalletRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	account, err := h.wallets.OpenWallet(ctx, caller, req.parsedAsset)
	if err != nil {
		h.logger.ErrorContext(ctx, "open wallet failed", "request_id", requestID, "owner", caller, "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.writeWallet(w, r, account)
}

func (h *DevHandler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	account, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeWallet(w, r, account)
}

// HandleFundWallet mints amount into a wallet out of thin air.
func (h *DevHandler) HandleFundWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	account, ok := h.lookup(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FundWalletRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.funds.Fund(ctx, account.Address, req.Amount); err != nil {
		h.logger.WarnContext(ctx, "fund wallet failed", "request_id", requestID, "address", account.Address, "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "wallet funded",
		"request_id", requestID,
		"address", account.Address,
		"amount", req.Amount,
	)
	h.writeWallet(w, r, account)
}

func (h *DevHandler) writeWallet(w http.ResponseWriter, r *http.Request, account ports.Account) {
	balance, err := h.funds.Balance(r.Context(), account.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account, balance))
}

func (h *DevHandler) lookup(w http.ResponseWriter, r *http.Request) (ports.Account, bool) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return ports.Account{}, false
	}
	account, err := h.wallets.Lookup(r.Context(), addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "wallet not found"))
		return ports.Account{}, false
	}
	if err != nil {
		httputil.WriteError(w, err)
		return ports.Account{}, false
	}
	return account, true
}
