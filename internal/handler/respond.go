package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexZinkM/evm-wallet/internal/crypto"
	"github.com/AlexZinkM/evm-wallet/internal/model"
	"github.com/AlexZinkM/evm-wallet/wallet"
)

// errorStatus maps a core error to its HTTP status and a stable code
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{crypto.ErrInvalidPhraseLength, http.StatusBadRequest, "invalid_phrase_length"},
	{crypto.ErrDerivationFailed, http.StatusBadRequest, "derivation_failed"},
	{crypto.ErrInvalidPrivateKeyFormat, http.StatusBadRequest, "invalid_private_key"},
	{wallet.ErrInvalidRecipient, http.StatusBadRequest, "invalid_recipient"},
	{wallet.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{wallet.ErrMissingRequiredField, http.StatusBadRequest, "missing_required_field"},
	{wallet.ErrEmptyPassword, http.StatusBadRequest, "empty_password"},
	{wallet.ErrInvalidTokenAddress, http.StatusBadRequest, "invalid_token_address"},
	{wallet.ErrIncorrectPassword, http.StatusUnauthorized, "incorrect_password"},
	{crypto.ErrDecryptionFailed, http.StatusUnauthorized, "decryption_failed"},
	{wallet.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{wallet.ErrDuplicateAccount, http.StatusConflict, "duplicate_account"},
	{wallet.ErrDuplicateChainID, http.StatusConflict, "duplicate_chain_id"},
	{wallet.ErrDuplicateToken, http.StatusConflict, "duplicate_token"},
	{wallet.ErrCannotRemoveDefault, http.StatusConflict, "cannot_remove_default"},
	{wallet.ErrLastAccountProtected, http.StatusConflict, "last_account_protected"},
	{wallet.ErrKeyAccountMismatch, http.StatusConflict, "key_account_mismatch"},
	{wallet.ErrNoActiveAccount, http.StatusLocked, "no_active_account"},
	{wallet.ErrWalletLocked, http.StatusLocked, "wallet_locked"},
	{wallet.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{wallet.ErrFeeDataUnavailable, http.StatusUnprocessableEntity, "fee_data_unavailable"},
}

func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: "bad_request"})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
