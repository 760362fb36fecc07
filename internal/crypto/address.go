package crypto

import (
	"fmt"
	"strings"

	"github.com/AlexZinkM/evm-wallet/internal/common"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	privateKeyLen = 32
	publicKeyLen  = 65
)

// PrivateKeyFromHex validates a raw private key (64 hex chars, optional 0x) and decodes it
func PrivateKeyFromHex(s string) ([]byte, error) {
	clean := common.Strip0x(strings.TrimSpace(s))
	if len(clean) != 2*privateKeyLen || !common.IsHex(clean) {
		return nil, ErrInvalidPrivateKeyFormat
	}
	key, err := common.HexToBytes(clean)
	if err != nil {
		return nil, ErrInvalidPrivateKeyFormat
	}
	return key, nil
}

// PublicKey computes the uncompressed secp256k1 public key (0x04 || X || Y)
func PublicKey(privateKey []byte) ([]byte, error) {
	if len(privateKey) != privateKeyLen {
		return nil, ErrInvalidKeyLength
	}

	key, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKeyFormat, err)
	}

	pub := ethcrypto.FromECDSAPub(&key.PublicKey)
	if len(pub) != publicKeyLen || pub[0] != 0x04 {
		return nil, ErrUnexpectedPublicKeyFormat
	}
	return pub, nil
}

// AddressFromPrivateKey returns the lowercase 0x-prefixed address:
// last 20 bytes of keccak256 over the public key without its 0x04 marker.
func AddressFromPrivateKey(privateKey []byte) (string, error) {
	pub, err := PublicKey(privateKey)
	if err != nil {
		return "", err
	}

	hash := ethcrypto.Keccak256(pub[1:])
	return common.BytesToHex(hash[len(hash)-20:]), nil
}
