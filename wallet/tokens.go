package wallet

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AlexZinkM/evm-wallet/internal/common"
	"github.com/AlexZinkM/evm-wallet/internal/model"

	"go.uber.org/zap"
)

// Tokens lists user-added tokens
func (w *Wallet) Tokens() []model.Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.tokens)
}

// AddToken stores a token for display. Its balance starts at "0" and is not refreshed.
func (w *Wallet) AddToken(t model.Token) (model.Token, error) {
	t.Address = strings.TrimSpace(t.Address)
	t.Symbol = strings.TrimSpace(t.Symbol)
	if t.Address == "" || t.Symbol == "" {
		return model.Token{}, fmt.Errorf("%w: address and symbol", ErrMissingRequiredField)
	}
	if !common.IsValidHexAddress(t.Address) {
		return model.Token{}, ErrInvalidTokenAddress
	}
	if t.Decimals < 0 {
		return model.Token{}, fmt.Errorf("%w: decimals must not be negative", ErrMissingRequiredField)
	}
	t.Balance = "0"

	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	tokens := w.tokens
	w.mu.Unlock()

	if slices.ContainsFunc(tokens, func(x model.Token) bool { return common.SameAddress(x.Address, t.Address) }) {
		return model.Token{}, ErrDuplicateToken
	}

	next := append(slices.Clone(tokens), t)
	if err := w.saveTokens(next); err != nil {
		return model.Token{}, err
	}

	w.mu.Lock()
	w.tokens = next
	w.mu.Unlock()

	w.log.Info("token added", zap.String("address", t.Address), zap.String("symbol", t.Symbol))
	return t, nil
}

// RemoveToken deletes a token by address. Unknown addresses are ignored.
func (w *Wallet) RemoveToken(address string) error {
	address = strings.TrimSpace(address)

	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	tokens := w.tokens
	w.mu.Unlock()

	next := slices.DeleteFunc(slices.Clone(tokens), func(x model.Token) bool { return common.SameAddress(x.Address, address) })
	if len(next) == len(tokens) {
		return nil
	}
	if err := w.saveTokens(next); err != nil {
		return err
	}

	w.mu.Lock()
	w.tokens = next
	w.mu.Unlock()
	return nil
}

func (w *Wallet) saveTokens(tokens []model.Token) error {
	if tokens == nil {
		tokens = []model.Token{}
	}
	b := batch{}
	if err := b.put(keyCustomTokens, tokens); err != nil {
		return err
	}
	if err := w.store.Write(b); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}
