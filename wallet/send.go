package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/AlexZinkM/evm-wallet/internal/common"
	"github.com/AlexZinkM/evm-wallet/internal/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// quote is what the ledger told us about the sender and current pricing
type quote struct {
	balance *big.Int
	nonce   uint64
	gas     uint64
	fees    *model.FeeData
}

// SendTransaction signs and broadcasts a native transfer from the current account.
// amount is a decimal string in the network's units. Returns the transaction hash.
// Sends from the same account never overlap, so two calls cannot reuse a pending nonce.
func (w *Wallet) SendTransaction(ctx context.Context, to, amount string) (string, error) {
	w.mu.Lock()
	from, ok := w.accounts.current()
	if !ok {
		w.mu.Unlock()
		return "", ErrNoActiveAccount
	}
	if w.session == nil {
		w.mu.Unlock()
		return "", ErrWalletLocked
	}
	password := w.session.passwordCopy()
	network := w.networks.current()
	lock := w.sendLocks.get(from.ID)
	w.mu.Unlock()
	defer clear(password)

	to = strings.TrimSpace(to)
	if !common.IsValidHexAddress(to) || common.SameAddress(to, from.Address) {
		sendFailures.WithLabelValues("recipient").Inc()
		return "", ErrInvalidRecipient
	}

	value, err := common.ParseUnits(amount, network.Decimals)
	if err != nil {
		sendFailures.WithLabelValues("amount").Inc()
		return "", fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if value.Sign() <= 0 {
		sendFailures.WithLabelValues("amount").Inc()
		return "", ErrInvalidAmount
	}

	lock.Lock()
	defer lock.Unlock()

	key, err := w.privateKey(from, password)
	if err != nil {
		sendFailures.WithLabelValues("key").Inc()
		return "", err
	}
	defer clear(key)

	hash, err := w.signAndSend(ctx, network, from.Address, ethcommon.HexToAddress(to), value, key)
	if err != nil {
		sendFailures.WithLabelValues(failureReason(err)).Inc()
		return "", err
	}
	transactionsSent.Inc()

	w.log.Info("transaction sent",
		zap.String("hash", hash), zap.String("from", from.Address), zap.String("to", to),
		zap.String("amount", amount), zap.Uint64("chainId", network.ChainID))

	w.mu.Lock()
	w.scheduleRefreshLocked(w.sendRefreshDelay)
	w.mu.Unlock()
	return hash, nil
}

func (w *Wallet) signAndSend(ctx context.Context, network model.Network, from string, to ethcommon.Address, value *big.Int, key []byte) (string, error) {
	ledger, err := w.dial(ctx, network)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", network.Name, err)
	}
	defer closeLedger(ledger)

	sender := ethcommon.HexToAddress(from)
	q, err := w.quote(ctx, ledger, ethereum.CallMsg{From: sender, To: &to, Value: value})
	if err != nil {
		return "", err
	}

	tx, err := buildTransaction(network, q, to, value)
	if err != nil {
		return "", err
	}

	priv, err := ethcrypto.ToECDSA(key)
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(network.ChainID)), priv)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := ledger.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// quote asks the ledger for balance, pending nonce, gas estimate and fee data at once.
// Missing fee data is not an error here; buildTransaction decides.
func (w *Wallet) quote(ctx context.Context, ledger Ledger, msg ethereum.CallMsg) (*quote, error) {
	q := &quote{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		balance, err := ledger.BalanceAt(gctx, msg.From)
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		q.balance = balance
		return nil
	})
	g.Go(func() error {
		nonce, err := ledger.PendingNonceAt(gctx, msg.From)
		if err != nil {
			return fmt.Errorf("failed to get nonce: %w", err)
		}
		q.nonce = nonce
		return nil
	})
	g.Go(func() error {
		gas, err := ledger.EstimateGas(gctx, msg)
		if err != nil {
			return fmt.Errorf("failed to estimate gas: %w", err)
		}
		q.gas = gas
		return nil
	})
	g.Go(func() error {
		fees, err := ledger.FeeData(gctx)
		if err != nil {
			w.log.Warn("failed to get fee data", zap.Error(err))
			return nil
		}
		q.fees = fees
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return q, nil
}

// buildTransaction picks the fee model and checks the balance covers value + gas * price.
// EIP-1559 fields win over the legacy gas price when both are present.
func buildTransaction(network model.Network, q *quote, to ethcommon.Address, value *big.Int) (*types.Transaction, error) {
	chainID := new(big.Int).SetUint64(network.ChainID)

	var (
		price *big.Int
		inner types.TxData
	)
	switch {
	case q.fees.HasDynamicFee():
		price = q.fees.MaxFeePerGas
		inner = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     q.nonce,
			GasTipCap: q.fees.MaxPriorityFeePerGas,
			GasFeeCap: q.fees.MaxFeePerGas,
			Gas:       q.gas,
			To:        &to,
			Value:     value,
		}
	case q.fees != nil && q.fees.GasPrice != nil:
		price = q.fees.GasPrice
		inner = &types.LegacyTx{
			Nonce:    q.nonce,
			GasPrice: q.fees.GasPrice,
			Gas:      q.gas,
			To:       &to,
			Value:    value,
		}
	default:
		return nil, ErrFeeDataUnavailable
	}

	total := new(big.Int).Mul(new(big.Int).SetUint64(q.gas), price)
	total.Add(total, value)
	if q.balance.Cmp(total) < 0 {
		return nil, &InsufficientFundsError{
			Required:  common.FormatUnits(total, network.Decimals),
			Available: common.FormatUnits(q.balance, network.Decimals),
			Symbol:    network.Symbol,
		}
	}
	return types.NewTx(inner), nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrFeeDataUnavailable):
		return "fee_data"
	default:
		return "ledger"
	}
}
