package wallet

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveAccount      = errors.New("no wallet connected")
	ErrWalletLocked         = errors.New("wallet is locked")
	ErrInvalidRecipient     = errors.New("invalid recipient address")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrKeyAccountMismatch   = errors.New("key does not match selected account")
	ErrFeeDataUnavailable   = errors.New("could not determine gas fees from RPC")
	ErrInsufficientFunds    = errors.New("insufficient funds (amount + gas)")
	ErrIncorrectPassword    = errors.New("incorrect password")
	ErrEmptyPassword        = errors.New("password cannot be empty")
	ErrDuplicateAccount     = errors.New("account already exists")
	ErrLastAccountProtected = errors.New("cannot remove the last account")
	ErrAccountNotFound      = errors.New("account not found")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrDuplicateChainID     = errors.New("network with this chain ID already exists")
	ErrCannotRemoveDefault  = errors.New("cannot remove default network")
	ErrDuplicateToken       = errors.New("token already added")
	ErrInvalidTokenAddress  = errors.New("invalid token address")
)

// InsufficientFundsError is returned by SendTransaction when the balance
// does not cover value + gasLimit * fee. Amounts are decimal strings.
type InsufficientFundsError struct {
	Required  string
	Available string
	Symbol    string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: need ~%s %s, have %s %s",
		ErrInsufficientFunds, e.Required, e.Symbol, e.Available, e.Symbol)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// IsInsufficientFundsError checks if error is InsufficientFundsError
func IsInsufficientFundsError(err error) bool {
	var target *InsufficientFundsError
	return errors.As(err, &target)
}
