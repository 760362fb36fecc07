package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/AlexZinkM/evm-wallet/internal/crypto"
	"github.com/AlexZinkM/evm-wallet/internal/model"
	"github.com/AlexZinkM/evm-wallet/wallet"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const defaultNetworkDecimals = 18

// WalletHandler exposes the wallet over HTTP
type WalletHandler struct {
	wallet *wallet.Wallet
	log    *zap.Logger
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(w *wallet.Wallet, log *zap.Logger) *WalletHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WalletHandler{wallet: w, log: log}
}

// Status handles GET /api/v1/status
// @Summary      Wallet status
// @Description  Lock state, current account and network, cached balance and recent transactions
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletStatus
// @Router       /api/v1/status [get]
func (h *WalletHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wallet.Status())
}

// CreateWallet handles POST /api/v1/wallet
// @Summary      Create wallet
// @Description  Replaces all accounts with one derived from the recovery phrase and unlocks the wallet
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateWalletRequest  true  "Password and recovery phrase"
// @Success      201      {object}  model.AccountInfo
// @Failure      400      {object}  model.ErrorResponse
// @Router       /api/v1/wallet [post]
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWalletRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	// Password as []byte, zeroed after use
	password := []byte(req.Password)
	defer clear(password)

	info, err := h.wallet.CreateWallet(password, req.RecoveryPhrase, req.AccountName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ImportWallet handles POST /api/v1/wallet/import
// @Summary      Import wallet from recovery phrase
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateWalletRequest  true  "Password and recovery phrase"
// @Success      201      {object}  model.AccountInfo
// @Failure      400      {object}  model.ErrorResponse
// @Router       /api/v1/wallet/import [post]
func (h *WalletHandler) ImportWallet(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWalletRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	info, err := h.wallet.ImportWallet(password, req.RecoveryPhrase)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ImportWithPrivateKey handles POST /api/v1/wallet/import-key
// @Summary      Import wallet from private key
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportKeyRequest  true  "Password and hex private key"
// @Success      201      {object}  model.AccountInfo
// @Failure      400      {object}  model.ErrorResponse
// @Router       /api/v1/wallet/import-key [post]
func (h *WalletHandler) ImportWithPrivateKey(w http.ResponseWriter, r *http.Request) {
	var req model.ImportKeyRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	info, err := h.wallet.ImportWithPrivateKey(password, req.PrivateKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// Unlock handles POST /api/v1/wallet/unlock
// @Summary      Unlock wallet
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.PasswordRequest  true  "Password"
// @Success      200      {object}  model.UnlockResponse
// @Failure      401      {object}  model.UnlockResponse
// @Router       /api/v1/wallet/unlock [post]
func (h *WalletHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	if !h.wallet.UnlockWallet(password) {
		writeJSON(w, http.StatusUnauthorized, model.UnlockResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, model.UnlockResponse{Success: true})
}

// Lock handles POST /api/v1/wallet/lock
// @Summary      Lock wallet
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletStatus
// @Router       /api/v1/wallet/lock [post]
func (h *WalletHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.wallet.LockWallet()
	writeJSON(w, http.StatusOK, h.wallet.Status())
}

// DeleteWallet handles DELETE /api/v1/wallet
// @Summary      Delete wallet
// @Description  Wipes accounts, custom networks and tokens. The wallet must be unlocked.
// @Tags         wallet
// @Success      204
// @Failure      423  {object}  model.ErrorResponse
// @Router       /api/v1/wallet [delete]
func (h *WalletHandler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := h.wallet.DeleteWallet(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportAccount handles POST /api/v1/accounts/import
// @Summary      Add account from recovery phrase
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportAccountRequest  true  "Session password and recovery phrase"
// @Success      201      {object}  model.AccountInfo
// @Failure      401      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /api/v1/accounts/import [post]
func (h *WalletHandler) ImportAccount(w http.ResponseWriter, r *http.Request) {
	var req model.ImportAccountRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	info, err := h.wallet.ImportAccount(password, req.RecoveryPhrase, req.AccountName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ImportAccountWithKey handles POST /api/v1/accounts/import-key
// @Summary      Add account from private key
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportAccountRequest  true  "Session password and hex private key"
// @Success      201      {object}  model.AccountInfo
// @Failure      401      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /api/v1/accounts/import-key [post]
func (h *WalletHandler) ImportAccountWithKey(w http.ResponseWriter, r *http.Request) {
	var req model.ImportAccountRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	info, err := h.wallet.ImportAccountWithKey(password, req.PrivateKey, req.AccountName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// SwitchAccount handles POST /api/v1/accounts/{id}/switch
// @Summary      Select account
// @Tags         accounts
// @Produce      json
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  model.WalletStatus
// @Failure      404  {object}  model.ErrorResponse
// @Router       /api/v1/accounts/{id}/switch [post]
func (h *WalletHandler) SwitchAccount(w http.ResponseWriter, r *http.Request) {
	ok, err := h.wallet.SwitchAccount(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, wallet.ErrAccountNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.wallet.Status())
}

// RenameAccount handles PATCH /api/v1/accounts/{id}
// @Summary      Rename account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Account ID"
// @Param        request  body      model.RenameAccountRequest  true  "New name"
// @Success      200      {object}  model.AccountInfo
// @Failure      404      {object}  model.ErrorResponse
// @Router       /api/v1/accounts/{id} [patch]
func (h *WalletHandler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	var req model.RenameAccountRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	info, err := h.wallet.RenameAccount(mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// RemoveAccount handles DELETE /api/v1/accounts/{id}
// @Summary      Remove account
// @Tags         accounts
// @Param        id   path  string  true  "Account ID"
// @Success      204
// @Failure      409  {object}  model.ErrorResponse
// @Router       /api/v1/accounts/{id} [delete]
func (h *WalletHandler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.wallet.RemoveAccount(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportPrivateKey handles POST /api/v1/accounts/export
// @Summary      Reveal private key of the current account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body      model.PasswordRequest  true  "Password"
// @Success      200      {object}  model.ExportResponse
// @Failure      401      {object}  model.ErrorResponse
// @Router       /api/v1/accounts/export [post]
func (h *WalletHandler) ExportPrivateKey(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	key, ok := h.wallet.ExportPrivateKey(password)
	if !ok {
		writeError(w, wallet.ErrIncorrectPassword)
		return
	}
	writeJSON(w, http.StatusOK, model.ExportResponse{PrivateKey: key})
}

// Networks handles GET /api/v1/networks
// @Summary      List networks
// @Tags         networks
// @Produce      json
// @Success      200  {array}  model.Network
// @Router       /api/v1/networks [get]
func (h *WalletHandler) Networks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wallet.Networks())
}

// AddNetwork handles POST /api/v1/networks
// @Summary      Add custom network
// @Tags         networks
// @Accept       json
// @Produce      json
// @Param        request  body      model.NetworkRequest  true  "Network"
// @Success      201      {object}  model.Network
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /api/v1/networks [post]
func (h *WalletHandler) AddNetwork(w http.ResponseWriter, r *http.Request) {
	var req model.NetworkRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	decimals := defaultNetworkDecimals
	if req.Decimals != nil {
		decimals = *req.Decimals
	}

	n, err := h.wallet.AddNetwork(model.Network{
		ChainID:     req.ChainID,
		RPCURL:      req.RPCURL,
		Name:        req.Name,
		Symbol:      req.Symbol,
		Decimals:    decimals,
		ExplorerURL: req.ExplorerURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// RemoveNetwork handles DELETE /api/v1/networks/{chainId}
// @Summary      Remove custom network
// @Tags         networks
// @Param        chainId  path  int  true  "Chain ID"
// @Success      204
// @Failure      409  {object}  model.ErrorResponse
// @Router       /api/v1/networks/{chainId} [delete]
func (h *WalletHandler) RemoveNetwork(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainIDVar(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.wallet.RemoveNetwork(chainID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SwitchNetwork handles POST /api/v1/networks/{chainId}/switch
// @Summary      Select network
// @Tags         networks
// @Produce      json
// @Param        chainId  path      int  true  "Chain ID"
// @Success      200      {object}  model.WalletStatus
// @Failure      404      {object}  model.ErrorResponse
// @Router       /api/v1/networks/{chainId}/switch [post]
func (h *WalletHandler) SwitchNetwork(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainIDVar(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ok, err := h.wallet.SwitchNetwork(chainID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: fmt.Sprintf("unknown chain id %d", chainID), Code: "network_not_found"})
		return
	}
	writeJSON(w, http.StatusOK, h.wallet.Status())
}

// Tokens handles GET /api/v1/tokens
// @Summary      List tokens
// @Tags         tokens
// @Produce      json
// @Success      200  {array}  model.Token
// @Router       /api/v1/tokens [get]
func (h *WalletHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	tokens := h.wallet.Tokens()
	if tokens == nil {
		tokens = []model.Token{}
	}
	writeJSON(w, http.StatusOK, tokens)
}

// AddToken handles POST /api/v1/tokens
// @Summary      Add token
// @Description  Tokens are display-only, balance stays "0"
// @Tags         tokens
// @Accept       json
// @Produce      json
// @Param        request  body      model.Token  true  "Token"
// @Success      201      {object}  model.Token
// @Failure      409      {object}  model.ErrorResponse
// @Router       /api/v1/tokens [post]
func (h *WalletHandler) AddToken(w http.ResponseWriter, r *http.Request) {
	var req model.Token
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	t, err := h.wallet.AddToken(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// RemoveToken handles DELETE /api/v1/tokens/{address}
// @Summary      Remove token
// @Tags         tokens
// @Param        address  path  string  true  "Token address"
// @Success      204
// @Router       /api/v1/tokens/{address} [delete]
func (h *WalletHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	if err := h.wallet.RemoveToken(mux.Vars(r)["address"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/send
// @Summary      Send native coin
// @Description  Signs with the current account and broadcasts. EIP-1559 fees are used when the node supports them.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        request  body      model.SendRequest  true  "Recipient and decimal amount"
// @Success      200      {object}  model.SendResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Failure      423      {object}  model.ErrorResponse
// @Router       /api/v1/send [post]
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	hash, err := h.wallet.SendTransaction(r.Context(), req.ToAddress, req.Amount)
	if err != nil {
		if status, _ := statusFor(err); status == http.StatusInternalServerError {
			h.log.Error("send failed", zap.Error(err))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SendResponse{TxHash: hash})
}

// RefreshBalance handles POST /api/v1/balance/refresh
// @Summary      Refresh balance
// @Tags         transactions
// @Produce      json
// @Success      200  {object}  model.WalletStatus
// @Router       /api/v1/balance/refresh [post]
func (h *WalletHandler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	h.wallet.RefreshBalance(r.Context())
	writeJSON(w, http.StatusOK, h.wallet.Status())
}

// RefreshTransactions handles POST /api/v1/transactions/refresh
// @Summary      Refresh recent transactions
// @Tags         transactions
// @Produce      json
// @Success      200  {object}  model.WalletStatus
// @Router       /api/v1/transactions/refresh [post]
func (h *WalletHandler) RefreshTransactions(w http.ResponseWriter, r *http.Request) {
	h.wallet.RefreshTransactions(r.Context())
	writeJSON(w, http.StatusOK, h.wallet.Status())
}

// Receive handles GET /api/v1/receive
// @Summary      Receive address
// @Description  Current account address with a base64 PNG QR code
// @Tags         transactions
// @Produce      json
// @Success      200  {object}  model.ReceiveResponse
// @Failure      423  {object}  model.ErrorResponse
// @Router       /api/v1/receive [get]
func (h *WalletHandler) Receive(w http.ResponseWriter, r *http.Request) {
	address, ok := h.wallet.Address()
	if !ok {
		writeError(w, wallet.ErrWalletLocked)
		return
	}

	// QR code (PNG, base64)
	png, err := qrcode.Encode(address, qrcode.Medium, 256)
	if err != nil {
		writeError(w, fmt.Errorf("failed to generate QR code: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, model.ReceiveResponse{
		Address: address,
		QR:      base64.StdEncoding.EncodeToString(png),
	})
}

// Phrase handles GET /api/v1/phrase
// @Summary      Generate recovery phrase
// @Tags         wallet
// @Produce      json
// @Param        words  query     int  false  "12 or 24"
// @Success      200    {object}  model.PhraseResponse
// @Router       /api/v1/phrase [get]
func (h *WalletHandler) Phrase(w http.ResponseWriter, r *http.Request) {
	words := 12
	if v := r.URL.Query().Get("words"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, fmt.Errorf("invalid words: %w", err))
			return
		}
		words = n
	}

	phrase, err := crypto.GeneratePhrase(words)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PhraseResponse{RecoveryPhrase: phrase})
}

func chainIDVar(r *http.Request) (uint64, error) {
	chainID, err := strconv.ParseUint(mux.Vars(r)["chainId"], 10, 64)
	if err != nil {
		return 0, errors.New("chainId must be a positive integer")
	}
	return chainID, nil
}
