package model

// SecretType tells how a decrypted secret is turned back into a signing key
type SecretType string

const (
	SecretTypePhrase     SecretType = "phrase"
	SecretTypePrivateKey SecretType = "privateKey"
)

// Account is a persisted wallet account
type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Address      string     `json:"address"`      // lowercase 0x + 40 hex
	EncryptedKey string     `json:"encryptedKey"` // sealed phrase or private key
	Type         SecretType `json:"type"`
}

// AccountInfo is the public view of an Account (no secret material)
type AccountInfo struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Address string     `json:"address"`
	Type    SecretType `json:"type"`
}

// Info strips the sealed secret
func (a Account) Info() AccountInfo {
	return AccountInfo{ID: a.ID, Name: a.Name, Address: a.Address, Type: a.Type}
}
