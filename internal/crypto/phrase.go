package crypto

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// NormalizePhrase lowercases a recovery phrase, trims it and collapses runs of whitespace
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// WordCount returns the number of words in a recovery phrase
func WordCount(phrase string) int {
	return len(strings.Fields(phrase))
}

// GeneratePhrase returns a fresh English BIP39 recovery phrase of 12 or 24 words
func GeneratePhrase(words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", ErrInvalidPhraseLength
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clear(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return phrase, nil
}
