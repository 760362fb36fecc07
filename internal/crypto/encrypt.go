package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/AlexZinkM/evm-wallet/internal/model"

	"golang.org/x/crypto/scrypt"
)

const (
	vaultVersion = 1

	// scrypt parameters for local wallet
	// N=2^18 (~256MB RAM, 0.5-2s) keeps brute force expensive and still runs on phones.
	// Cost travels inside the vault, so lowering N later does not break old vaults.
	DefaultScryptN = 1 << 18
	scryptR        = 8
	scryptP        = 1
	scryptKeyLen   = 32
	saltLen        = 32
	nonceLen       = 12

	maxScryptN = 1 << 20
)

// Params is the scrypt cost used when sealing
type Params struct {
	N int
	R int
	P int
}

// DefaultParams returns the production scrypt cost
func DefaultParams() Params {
	return Params{N: DefaultScryptN, R: scryptR, P: scryptP}
}

// Cipher seals and opens account secrets under a password
type Cipher struct {
	params Params
}

// NewCipher creates a Cipher that seals with the given scrypt cost
func NewCipher(params Params) (*Cipher, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Cipher{params: params}, nil
}

func (p Params) validate() error {
	if p.N <= 1 || p.N&(p.N-1) != 0 || p.N > maxScryptN {
		return fmt.Errorf("scrypt N must be a power of two between 2 and %d, got %d", maxScryptN, p.N)
	}
	if p.R <= 0 || p.P <= 0 || p.R*p.P >= 1<<30 {
		return fmt.Errorf("invalid scrypt r=%d p=%d", p.R, p.P)
	}
	return nil
}

// Seal encrypts plaintext with a fresh salt and nonce.
// password must be []byte for security (caller should zero it after use)
func (c *Cipher) Seal(plaintext, password []byte) (string, error) {
	// Generate salt and nonce
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(password, salt, c.params)
	if err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	vault := model.Vault{
		Version:    vaultVersion,
		N:          c.params.N,
		R:          c.params.R,
		P:          c.params.P,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	data, err := json.Marshal(vault)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vault: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// newGCM derives the AES-256 key from password with scrypt and wraps it in GCM
func newGCM(password, salt []byte, params Params) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
