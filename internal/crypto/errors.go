package crypto

import "errors"

var (
	ErrInvalidPhraseLength       = errors.New("recovery phrase must be 12 or 24 words")
	ErrDerivationFailed          = errors.New("failed to derive private key from recovery phrase")
	ErrInvalidPrivateKeyFormat   = errors.New("invalid private key format")
	ErrInvalidKeyLength          = errors.New("invalid private key length")
	ErrUnexpectedPublicKeyFormat = errors.New("unexpected public key format")
	ErrDecryptionFailed          = errors.New("invalid password")
)
