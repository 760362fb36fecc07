package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AlexZinkM/evm-wallet/internal/crypto"
	"github.com/AlexZinkM/evm-wallet/internal/handler"
	"github.com/AlexZinkM/evm-wallet/internal/model"
	"github.com/AlexZinkM/evm-wallet/internal/storage"
	"github.com/AlexZinkM/evm-wallet/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testPassword = "Abcdefgh1!"
	testPhrase   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testAddress  = "0x9858effd232b4033e47d90003d41ec34ecaeda94"
)

type noExplorer struct{}

func (noExplorer) Transactions(ctx context.Context, explorerURL, address string) ([]model.Transaction, error) {
	return nil, errors.New("explorer offline")
}

func offline(ctx context.Context, n model.Network) (wallet.Ledger, error) {
	return nil, errors.New("node offline")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cipher, err := crypto.NewCipher(crypto.Params{N: 1 << 10, R: 8, P: 1})
	require.NoError(t, err)

	w, err := wallet.New(wallet.Options{
		Storage:         store,
		Dial:            offline,
		Explorer:        noExplorer{},
		Cipher:          cipher,
		RefreshInterval: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)

	srv := httptest.NewServer(SetupRouter(handler.NewWalletHandler(w, zap.NewNop()), zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createWallet(t *testing.T, srv *httptest.Server) model.AccountInfo {
	t.Helper()
	var info model.AccountInfo
	status := call(t, srv, http.MethodPost, "/api/v1/wallet", model.CreateWalletRequest{
		Password:       testPassword,
		RecoveryPhrase: testPhrase,
	}, &info)
	require.Equal(t, http.StatusCreated, status)
	return info
}

func TestRouter_WalletLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var st model.WalletStatus
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/status", nil, &st))
	assert.Equal(t, "noWallet", st.State)
	assert.Len(t, st.Networks, 1)

	info := createWallet(t, srv)
	assert.Equal(t, testAddress, info.Address)
	assert.Equal(t, "Account 1", info.Name)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/wallet/lock", nil, &st))
	assert.True(t, st.IsLocked)
	assert.Empty(t, st.Address)

	var errResp model.ErrorResponse
	assert.Equal(t, http.StatusLocked, call(t, srv, http.MethodDelete, "/api/v1/wallet", nil, &errResp))
	assert.Equal(t, "wallet_locked", errResp.Code)

	var unlock model.UnlockResponse
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/wallet/unlock",
		model.PasswordRequest{Password: "wrong-password"}, &unlock))
	assert.False(t, unlock.Success)

	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/wallet/unlock",
		model.PasswordRequest{Password: testPassword}, &unlock))
	assert.True(t, unlock.Success)

	var export model.ExportResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/accounts/export",
		model.PasswordRequest{Password: testPassword}, &export))
	assert.Equal(t, "0x1ab42cc412b618bdea3a599e3c9bae199ebf030895b039e9db1e30dafb12b727", export.PrivateKey)

	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodDelete, "/api/v1/accounts/"+info.ID, nil, &errResp))
	assert.Equal(t, "last_account_protected", errResp.Code)

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/api/v1/wallet", nil, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/status", nil, &st))
	assert.Equal(t, "noWallet", st.State)
}

func TestRouter_Accounts(t *testing.T) {
	srv := newTestServer(t)
	createWallet(t, srv)

	var errResp model.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/accounts/import-key", model.ImportAccountRequest{
		Password:   "nope",
		PrivateKey: "0x0000000000000000000000000000000000000000000000000000000000000001",
	}, &errResp))
	assert.Equal(t, "incorrect_password", errResp.Code)

	var second model.AccountInfo
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/accounts/import-key", model.ImportAccountRequest{
		Password:   testPassword,
		PrivateKey: "0x0000000000000000000000000000000000000000000000000000000000000001",
	}, &second))
	assert.Equal(t, "Account 2", second.Name)

	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/api/v1/accounts/import", model.ImportAccountRequest{
		Password:       testPassword,
		RecoveryPhrase: testPhrase,
	}, &errResp))
	assert.Equal(t, "duplicate_account", errResp.Code)

	var renamed model.AccountInfo
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, "/api/v1/accounts/"+second.ID,
		model.RenameAccountRequest{Name: "Cold"}, &renamed))
	assert.Equal(t, "Cold", renamed.Name)

	var st model.WalletStatus
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/accounts/"+second.ID+"/switch", nil, &st))
	assert.Equal(t, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", st.Address)

	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPost, "/api/v1/accounts/missing/switch", nil, &errResp))
	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/api/v1/accounts/"+second.ID, nil, nil))
}

func TestRouter_Networks(t *testing.T) {
	srv := newTestServer(t)

	var n model.Network
	body := map[string]any{"chainId": 1, "rpcUrl": "https://rpc.example", "name": "X", "symbol": "X"}
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/networks", body, &n))
	assert.Equal(t, 18, n.Decimals)
	assert.True(t, n.IsCustom)

	var errResp model.ErrorResponse
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/api/v1/networks", body, &errResp))
	assert.Equal(t, "duplicate_chain_id", errResp.Code)

	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/v1/networks",
		map[string]any{"chainId": 2, "name": "Y"}, &errResp))
	assert.Equal(t, "missing_required_field", errResp.Code)

	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodDelete, "/api/v1/networks/990715", nil, &errResp))
	assert.Equal(t, "cannot_remove_default", errResp.Code)

	var st model.WalletStatus
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/networks/1/switch", nil, &st))
	assert.Equal(t, uint64(1), st.CurrentNetwork.ChainID)

	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPost, "/api/v1/networks/5/switch", nil, &errResp))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodDelete, "/api/v1/networks/abc", nil, &errResp))
	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/api/v1/networks/1", nil, nil))

	var networks []model.Network
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/networks", nil, &networks))
	assert.Len(t, networks, 1)
}

func TestRouter_Tokens(t *testing.T) {
	srv := newTestServer(t)
	const addr = "0x00000000000000000000000000000000000000aa"

	var tokens []model.Token
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/tokens", nil, &tokens))
	assert.Empty(t, tokens)

	var tok model.Token
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/tokens",
		model.Token{Address: addr, Symbol: "TKN", Name: "Token", Decimals: 6}, &tok))
	assert.Equal(t, "0", tok.Balance)

	var errResp model.ErrorResponse
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/api/v1/tokens",
		model.Token{Address: addr, Symbol: "TKN"}, &errResp))

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/api/v1/tokens/"+addr, nil, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/tokens", nil, &tokens))
	assert.Empty(t, tokens)
}

func TestRouter_Send(t *testing.T) {
	srv := newTestServer(t)

	var errResp model.ErrorResponse
	assert.Equal(t, http.StatusLocked, call(t, srv, http.MethodPost, "/api/v1/send",
		model.SendRequest{ToAddress: testAddress, Amount: "1"}, &errResp))
	assert.Equal(t, "no_active_account", errResp.Code)

	createWallet(t, srv)

	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/v1/send",
		model.SendRequest{ToAddress: testAddress, Amount: "1"}, &errResp))
	assert.Equal(t, "invalid_recipient", errResp.Code)

	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/v1/send",
		model.SendRequest{ToAddress: "0x00000000000000000000000000000000000000aa", Amount: "-1"}, &errResp))
	assert.Equal(t, "invalid_amount", errResp.Code)

	assert.Equal(t, http.StatusInternalServerError, call(t, srv, http.MethodPost, "/api/v1/send",
		model.SendRequest{ToAddress: "0x00000000000000000000000000000000000000aa", Amount: "1"}, &errResp))
	assert.Contains(t, errResp.Error, "node offline")

	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/v1/send",
		map[string]any{"to": "x"}, &errResp))
	assert.Equal(t, "bad_request", errResp.Code)
}

func TestRouter_ReceiveAndRefresh(t *testing.T) {
	srv := newTestServer(t)

	var errResp model.ErrorResponse
	assert.Equal(t, http.StatusLocked, call(t, srv, http.MethodGet, "/api/v1/receive", nil, &errResp))

	createWallet(t, srv)

	var recv model.ReceiveResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/receive", nil, &recv))
	assert.Equal(t, testAddress, recv.Address)
	png, err := base64.StdEncoding.DecodeString(recv.QR)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	var st model.WalletStatus
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/balance/refresh", nil, &st))
	assert.Equal(t, "0.000000", st.Balance)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/transactions/refresh", nil, &st))
	assert.Empty(t, st.Transactions)
}

func TestRouter_Phrase(t *testing.T) {
	srv := newTestServer(t)

	var resp model.PhraseResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/phrase?words=24", nil, &resp))
	assert.Len(t, strings.Fields(resp.RecoveryPhrase), 24)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/phrase", nil, &resp))
	assert.Len(t, strings.Fields(resp.RecoveryPhrase), 12)

	var errResp model.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodGet, "/api/v1/phrase?words=13", nil, &errResp))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodGet, "/api/v1/phrase?words=many", nil, &errResp))
}

func TestRouter_Metrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
