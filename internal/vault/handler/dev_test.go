package handler

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/internal/vault/directory"
	"custody/internal/vault/tokens"
	"custody/pkg/testutil"
)

func newDevRouter() http.Handler {
	dir := directory.New()
	r := chi.NewRouter()
	NewDev(dir, tokens.NewBank(dir), slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestDevWallets(t *testing.T) {
	router := newDevRouter()

	open := func(principal string) *WalletResponse {
		req := testutil.WithPrincipal(testutil.NewJSONRequest(t, http.MethodPost, "/dev/wallets",
			map[string]string{"asset": "usdc"}), principal)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		return testutil.UnmarshalResponse[WalletResponse](t, rr)
	}

	t.Run("opening twice returns the same wallet", func(t *testing.T) {
		first := open("dave")
		second := open("dave")
		assert.Equal(t, first.Address, second.Address)
		assert.Equal(t, "dave", first.Owner)
		assert.Equal(t, "usdc", first.Asset)
		assert.Zero(t, first.Balance)
		assert.NotEqual(t, first.Address, open("erin").Address)
	})

	t.Run("fund credits the balance", func(t *testing.T) {
		wallet := open("fay")
		path := "/dev/wallets/" + wallet.Address
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path+"/fund",
			map[string]uint64{"amount": 75}))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, uint64(75), testutil.UnmarshalResponse[WalletResponse](t, rr).Balance)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint64(75), testutil.UnmarshalResponse[WalletResponse](t, rr).Balance)
	})

	t.Run("funding past the supply limit is rejected", func(t *testing.T) {
		wallet := open("gus")
		path := "/dev/wallets/" + wallet.Address + "/fund"
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path,
			map[string]uint64{"amount": math.MaxUint64}))
		require.Equal(t, http.StatusOK, rr.Code)
		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path,
			map[string]uint64{"amount": 1}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "capacity_exceeded")
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name      string
			req       *http.Request
			status    int
			errorCode string
		}{
			{
				name:      "open without principal",
				req:       testutil.NewJSONRequest(t, http.MethodPost, "/dev/wallets", map[string]string{"asset": "usdc"}),
				status:    http.StatusUnauthorized,
				errorCode: "unauthorized",
			},
			{
				name: "open without asset",
				req: testutil.WithPrincipal(testutil.NewJSONRequest(t, http.MethodPost, "/dev/wallets",
					map[string]string{}), "dave"),
				status:    http.StatusBadRequest,
				errorCode: "invalid_input",
			},
			{
				name:      "unknown wallet",
				req:       testutil.NewJSONRequest(t, http.MethodGet, "/dev/wallets/missing", nil),
				status:    http.StatusNotFound,
				errorCode: "not_found",
			},
			{
				name: "zero amount",
				req: testutil.NewJSONRequest(t, http.MethodPost, "/dev/wallets/"+open("hal").Address+"/fund",
					map[string]uint64{"amount": 0}),
				status:    http.StatusBadRequest,
				errorCode: "validation_error",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				testutil.AssertStatusAndError(t, testutil.DoRequest(router, tt.req), tt.status, tt.errorCode)
			})
		}
	})
}
