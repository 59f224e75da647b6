package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custody/internal/platform/middleware"
	"custody/internal/vault/directory"
	"custody/internal/vault/metrics"
	"custody/internal/vault/models"
	"custody/internal/vault/service"
	ledgerStore "custody/internal/vault/store/ledger"
	registryStore "custody/internal/vault/store/registry"
	vaultStore "custody/internal/vault/store/vault"
	"custody/internal/vault/tokens"
	id "custody/pkg/domain"
)

// stubTokens maps bearer tokens to principals for the auth middleware.
type stubTokens map[string]id.PrincipalID

func (s stubTokens) ValidateToken(token string) (*middleware.TokenClaims, error) {
	p, ok := s[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &middleware.TokenClaims{Principal: p}, nil
}

type HandlerSuite struct {
	suite.Suite
	now    time.Time
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := directory.New()
	bank := tokens.NewBank(dir)
	svc, err := service.New(
		service.Stores{
			Registry: registryStore.NewInMemory(),
			Vaults:   vaultStore.NewInMemory(),
			Ledger:   ledgerStore.NewInMemory(),
		},
		service.Collaborators{Directory: dir, Tokens: bank},
		service.WithLogger(logger),
		service.WithMetrics(metrics.New(prometheus.NewRegistry())),
		service.WithClock(func() time.Time { return s.now }),
		service.WithCooldownPolicy(models.CooldownPolicy{CooldownPeriod: time.Hour}),
	)
	require.NoError(s.T(), err)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(stubTokens{
			"operator": "operator",
			"alice":    "alice",
			"gina":     "gina",
			"dave":     "dave",
			"mallory":  "mallory",
		}, logger))
		New(svc, logger).Register(r)
		NewDev(dir, bank, logger).Register(r)
	})
	s.router = r
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.T(), err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](s *HandlerSuite, w *httptest.ResponseRecorder) T {
	var out T
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *HandlerSuite) errorCode(w *httptest.ResponseRecorder) string {
	return decode[map[string]string](s, w)["error"]
}

func (s *HandlerSuite) setupVault() *VaultResponse {
	w := s.do(http.MethodPost, "/registry/initialize", "operator", nil)
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/vaults", "alice", map[string]any{"asset": "usdc"})
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())
	return decode[*VaultResponse](s, w)
}

func (s *HandlerSuite) fundedWallet(token string, amount uint64) string {
	w := s.do(http.MethodPost, "/dev/wallets", token, map[string]any{"asset": "usdc"})
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	wallet := decode[*WalletResponse](s, w)

	w = s.do(http.MethodPost, "/dev/wallets/"+wallet.Address+"/fund", token, map[string]any{"amount": amount})
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), amount, decode[*WalletResponse](s, w).Balance)
	return wallet.Address
}

func (s *HandlerSuite) TestDepositAndWithdrawalFlow() {
	vault := s.setupVault()
	assert.Equal(s.T(), uint64(1), vault.ID)
	assert.Equal(s.T(), "active", vault.Status)

	wallet := s.fundedWallet("dave", 500)

	w := s.do(http.MethodPost, "/vaults/1/deposits", "dave", map[string]any{"amount": 200, "source_account": wallet})
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), uint64(200), decode[*DepositResponse](s, w).Amount)

	w = s.do(http.MethodPost, "/vaults/1/withdrawals", "dave", map[string]any{"amount": 80})
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())
	initiated := decode[*WithdrawalResponse](s, w)
	assert.Equal(s.T(), "initiated", initiated.Status)
	require.NotNil(s.T(), initiated.ReadyAt)
	assert.Equal(s.T(), s.now.Add(time.Hour), *initiated.ReadyAt)

	w = s.do(http.MethodGet, "/vaults/1/deposits/dave", "alice", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	entry := decode[*DepositResponse](s, w)
	assert.Equal(s.T(), uint64(80), entry.Committed)
	assert.Equal(s.T(), uint64(120), entry.Available)
	require.Len(s.T(), entry.Requests, 1)

	w = s.do(http.MethodPost, "/vaults/1/withdrawals/0/advance", "dave", nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), "cooldown", decode[*WithdrawalResponse](s, w).Status)

	w = s.do(http.MethodPost, "/vaults/1/withdrawals/0/advance", "dave", nil)
	assert.Equal(s.T(), http.StatusConflict, w.Code)
	assert.Equal(s.T(), "lifecycle_conflict", s.errorCode(w))

	s.now = s.now.Add(time.Hour)
	w = s.do(http.MethodPost, "/vaults/1/withdrawals/0/advance", "dave", nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), "ready", decode[*WithdrawalResponse](s, w).Status)

	w = s.do(http.MethodPost, "/vaults/1/withdrawals/0/complete", "dave", map[string]any{"destination_account": wallet})
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	done := decode[*WithdrawalResponse](s, w)
	assert.Equal(s.T(), "completed", done.Status)
	assert.Nil(s.T(), done.ReadyAt)

	w = s.do(http.MethodGet, "/vaults/1/withdrawals", "dave", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Empty(s.T(), decode[*WithdrawalListResponse](s, w).Requests)

	w = s.do(http.MethodGet, "/vaults/1/deposits/dave/balance", "dave", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), uint64(120), decode[*BalanceResponse](s, w).Amount)

	w = s.do(http.MethodGet, "/dev/wallets/"+wallet, "dave", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), uint64(380), decode[*WalletResponse](s, w).Balance)
}

func (s *HandlerSuite) TestCancelFreesTheSlot() {
	s.setupVault()
	wallet := s.fundedWallet("dave", 100)
	w := s.do(http.MethodPost, "/vaults/1/deposits", "dave", map[string]any{"amount": 100, "source_account": wallet})
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/vaults/1/withdrawals", "dave", map[string]any{"amount": 100})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/vaults/1/withdrawals", "dave", map[string]any{"amount": 1})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Equal(s.T(), "capacity_exceeded", s.errorCode(w))

	w = s.do(http.MethodPost, "/vaults/1/withdrawals/0/cancel", "dave", nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), "cancelled", decode[*WithdrawalResponse](s, w).Status)

	w = s.do(http.MethodGet, "/vaults/1/deposits/dave", "dave", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), uint64(100), decode[*DepositResponse](s, w).Available)
}

func (s *HandlerSuite) TestLifecycleAndGuardians() {
	s.setupVault()

	w := s.do(http.MethodPost, "/vaults/1/freeze", "mallory", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(s.T(), "unauthorized", s.errorCode(w))

	w = s.do(http.MethodPost, "/vaults/1/guardians", "alice", map[string]any{"guardian": "gina"})
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())
	vault := decode[*VaultResponse](s, w)
	require.Len(s.T(), vault.Guardians, 1)
	assert.True(s.T(), vault.Guardians[0].Active)

	w = s.do(http.MethodPost, "/vaults/1/guardians", "alice", map[string]any{"guardian": "gina"})
	assert.Equal(s.T(), http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/vaults/1/freeze", "gina", nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.T(), "frozen", decode[*VaultResponse](s, w).Status)

	wallet := s.fundedWallet("dave", 10)
	w = s.do(http.MethodPost, "/vaults/1/deposits", "dave", map[string]any{"amount": 5, "source_account": wallet})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
	assert.Equal(s.T(), "lifecycle_conflict", s.errorCode(w))

	w = s.do(http.MethodPost, "/vaults/1/guardians/gina/suspend", "alice", nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	assert.False(s.T(), decode[*VaultResponse](s, w).Guardians[0].Active)

	w = s.do(http.MethodPost, "/vaults/1/unfreeze", "gina", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/vaults/1/guardians/gina/reinstate", "alice", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/vaults/1/unfreeze", "gina", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/vaults/1/guardians/gina", "alice", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Empty(s.T(), decode[*VaultResponse](s, w).Guardians)

	w = s.do(http.MethodPost, "/vaults/1/close", "alice", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "closed", decode[*VaultResponse](s, w).Status)

	w = s.do(http.MethodPost, "/vaults/1/close", "alice", nil)
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *HandlerSuite) TestRequestErrors() {
	s.setupVault()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"missing token", http.MethodGet, "/vaults", "", nil, http.StatusUnauthorized, "unauthorized"},
		{"unknown vault", http.MethodGet, "/vaults/99", "alice", nil, http.StatusNotFound, "not_found"},
		{"malformed vault id", http.MethodGet, "/vaults/abc", "alice", nil, http.StatusBadRequest, "invalid_input"},
		{"slot not a number", http.MethodPost, "/vaults/1/withdrawals/x/cancel", "dave", nil, http.StatusBadRequest, "bad_request"},
		{"cancel without deposit", http.MethodPost, "/vaults/1/withdrawals/0/cancel", "dave", nil, http.StatusNotFound, "not_found"},
		{"empty body", http.MethodPost, "/vaults", "alice", nil, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, "/vaults", "alice", `{"asset":"usdc","owner":"x"}`, http.StatusBadRequest, "bad_request"},
		{"missing asset", http.MethodPost, "/vaults", "alice", map[string]any{"max_deposit": 5}, http.StatusBadRequest, "validation_error"},
		{"creator as guardian", http.MethodPost, "/vaults/1/guardians", "alice", map[string]any{"guardian": "alice"}, http.StatusConflict, "conflict"},
		{"deposit without source", http.MethodPost, "/vaults/1/deposits", "dave", map[string]any{"amount": 5}, http.StatusBadRequest, "validation_error"},
		{"no deposit entry", http.MethodGet, "/vaults/1/deposits/dave", "dave", nil, http.StatusNotFound, "not_found"},
		{"unknown wallet", http.MethodGet, "/dev/wallets/nowhere", "dave", nil, http.StatusNotFound, "not_found"},
		{"registry twice", http.MethodPost, "/registry/initialize", "operator", nil, http.StatusConflict, "lifecycle_conflict"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(s.T(), tt.status, w.Code, w.Body.String())
			assert.Equal(s.T(), tt.code, s.errorCode(w))
		})
	}
}

func (s *HandlerSuite) TestBalanceIsZeroForUnknownDepositor() {
	s.setupVault()
	w := s.do(http.MethodGet, "/vaults/1/deposits/nobody/balance", "alice", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Zero(s.T(), decode[*BalanceResponse](s, w).Amount)

	w = s.do(http.MethodGet, "/registry", "alice", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	reg := decode[*RegistryResponse](s, w)
	assert.True(s.T(), reg.Initialized)
	assert.Equal(s.T(), uint64(2), reg.NextVaultID)
}
