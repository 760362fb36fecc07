package model

// CreateWalletRequest represents request for POST /api/v1/wallet and /wallet/import
type CreateWalletRequest struct {
	Password       string `json:"password"`
	RecoveryPhrase string `json:"recoveryPhrase"`
	AccountName    string `json:"accountName"`
}

// ImportKeyRequest represents request for POST /api/v1/wallet/import-key
type ImportKeyRequest struct {
	Password   string `json:"password"`
	PrivateKey string `json:"privateKey"`
}

// ImportAccountRequest represents request for POST /api/v1/accounts/import and /accounts/import-key
type ImportAccountRequest struct {
	Password       string `json:"password"`
	RecoveryPhrase string `json:"recoveryPhrase,omitempty"`
	PrivateKey     string `json:"privateKey,omitempty"`
	AccountName    string `json:"accountName"`
}

// PasswordRequest represents request for POST /api/v1/wallet/unlock and /accounts/export
type PasswordRequest struct {
	Password string `json:"password"`
}

// RenameAccountRequest represents request for PATCH /api/v1/accounts/{id}
type RenameAccountRequest struct {
	Name string `json:"name"`
}

// UnlockResponse represents response for POST /api/v1/wallet/unlock
type UnlockResponse struct {
	Success bool `json:"success"`
}

// ExportResponse represents response for POST /api/v1/accounts/export
type ExportResponse struct {
	PrivateKey string `json:"privateKey"`
}

// PhraseResponse represents response for GET /api/v1/phrase
type PhraseResponse struct {
	RecoveryPhrase string `json:"recoveryPhrase"`
}

// ReceiveResponse represents response for GET /api/v1/receive
type ReceiveResponse struct {
	Address string `json:"address"`
	QR      string `json:"QR"` // base64 PNG
}
