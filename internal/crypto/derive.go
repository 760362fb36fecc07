package crypto

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DerivationPath is the first external account of coin type 60 (Ethereum)
	DerivationPath = "m/44'/60'/0'/0/0"

	seedSalt       = "mnemonic"
	seedIterations = 2048
	seedLen        = 64
)

// Strategy turns a normalized phrase into a 64-byte BIP32 seed.
// Strategies are tried in order by DeriveFromPhrase.
type Strategy struct {
	Name string
	Seed func(phrase string) ([]byte, error)
}

var (
	// BIP39Strategy validates the phrase against the English wordlist and checksum
	BIP39Strategy = Strategy{Name: "bip39", Seed: bip39Seed}

	// PBKDF2Strategy stretches the raw phrase bytes without any wordlist check
	PBKDF2Strategy = Strategy{Name: "pbkdf2", Seed: pbkdf2Seed}
)

// Strategies returns the ordered strategy list.
// In strict mode only wordlist-valid phrases are accepted.
func Strategies(strict bool) []Strategy {
	if strict {
		return []Strategy{BIP39Strategy}
	}
	return []Strategy{BIP39Strategy, PBKDF2Strategy}
}

// Attempt records a strategy that failed
type Attempt struct {
	Strategy string
	Err      error
}

// Derivation is the result of a successful phrase derivation
type Derivation struct {
	PrivateKey []byte // 32 bytes, caller should zero it after use
	Strategy   string
	Attempts   []Attempt // failed strategies tried before Strategy
}

// DeriveFromPhrase derives the private key at DerivationPath from a recovery phrase
func DeriveFromPhrase(phrase string, strategies []Strategy) (*Derivation, error) {
	normalized := NormalizePhrase(phrase)
	if n := WordCount(normalized); n != 12 && n != 24 {
		return nil, ErrInvalidPhraseLength
	}

	path, err := accounts.ParseDerivationPath(DerivationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse derivation path: %w", err)
	}

	var attempts []Attempt
	for _, s := range strategies {
		key, err := deriveWith(s, normalized, path)
		if err != nil {
			attempts = append(attempts, Attempt{Strategy: s.Name, Err: err})
			continue
		}
		return &Derivation{PrivateKey: key, Strategy: s.Name, Attempts: attempts}, nil
	}

	errs := make([]error, 0, len(attempts))
	for _, a := range attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
	}
	return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, errors.Join(errs...))
}

// PrivateKeyFromPhrase is DeriveFromPhrase returning only the key
func PrivateKeyFromPhrase(phrase string, strategies []Strategy) ([]byte, error) {
	d, err := DeriveFromPhrase(phrase, strategies)
	if err != nil {
		return nil, err
	}
	return d.PrivateKey, nil
}

func deriveWith(s Strategy, phrase string, path accounts.DerivationPath) ([]byte, error) {
	seed, err := s.Seed(phrase)
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	return keyFromSeed(seed, path)
}

func bip39Seed(phrase string) ([]byte, error) {
	return bip39.NewSeedWithErrorChecking(phrase, "")
}

func pbkdf2Seed(phrase string) ([]byte, error) {
	return pbkdf2.Key([]byte(phrase), []byte(seedSalt), seedIterations, seedLen, sha512.New), nil
}

// keyFromSeed walks the BIP32 tree from the master key down to path
func keyFromSeed(seed []byte, path accounts.DerivationPath) ([]byte, error) {
	// Bitcoin mainnet params only affect extended key serialization, not derivation
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	for _, index := range path {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d: %w", index, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("no private key at %s: %w", DerivationPath, err)
	}

	out := priv.Serialize()
	if len(out) != privateKeyLen {
		return nil, ErrInvalidKeyLength
	}
	return out, nil
}
