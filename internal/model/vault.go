package model

// Vault is the sealed form of an account secret.
// It is stored base64(JSON) inside Account.EncryptedKey.
type Vault struct {
	Version    int    `json:"v"`
	N          int    `json:"n"`
	R          int    `json:"r"`
	P          int    `json:"p"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}
