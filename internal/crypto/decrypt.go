package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/AlexZinkM/evm-wallet/internal/model"
)

// Open decrypts a sealed secret.
// Any failure, including a wrong password or an empty/non-UTF-8 result, is ErrDecryptionFailed.
// password must be []byte for security (caller should zero the password and the result after use)
func (c *Cipher) Open(sealed string, password []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode vault: %v", ErrDecryptionFailed, err)
	}

	var vault model.Vault
	if err := json.Unmarshal(data, &vault); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal vault: %v", ErrDecryptionFailed, err)
	}
	if vault.Version != vaultVersion {
		return nil, fmt.Errorf("%w: unsupported vault version %d", ErrDecryptionFailed, vault.Version)
	}

	params := Params{N: vault.N, R: vault.R, P: vault.P}
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	// Decode salt and nonce
	salt, err := base64.StdEncoding.DecodeString(vault.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode salt: %v", ErrDecryptionFailed, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(vault.Nonce)
	if err != nil || len(nonce) != nonceLen {
		return nil, fmt.Errorf("%w: invalid nonce", ErrDecryptionFailed)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(vault.CipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode ciphertext: %v", ErrDecryptionFailed, err)
	}

	aesGCM, err := newGCM(password, salt, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	if len(plaintext) == 0 || !utf8.Valid(plaintext) {
		clear(plaintext)
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
