package wallet

import (
	"context"
	"io"
	"math/big"
	"slices"
	"time"

	"github.com/AlexZinkM/evm-wallet/internal/common"
	"github.com/AlexZinkM/evm-wallet/internal/model"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxTransactions is how many recent transactions are kept, newest first
const maxTransactions = 15

// view is what a refresh reads before releasing the lock
type view struct {
	gen     generation
	address string
	network model.Network
}

// viewLocked returns the view to refresh, or false while locked or without an account
func (w *Wallet) viewLocked() (view, bool) {
	if w.session == nil {
		return view{}, false
	}
	a, ok := w.accounts.current()
	if !ok {
		return view{}, false
	}
	return view{gen: w.generationLocked(), address: a.Address, network: w.networks.current()}, true
}

func (w *Wallet) startRefresherLocked() {
	w.stopRefresherLocked()

	ctx, cancel := context.WithCancel(context.Background())
	w.refreshCtx, w.refreshCancel = ctx, cancel

	w.wg.Add(1)
	go w.refreshLoop(ctx)
}

func (w *Wallet) stopRefresherLocked() {
	if w.refreshCancel != nil {
		w.refreshCancel()
	}
	w.refreshCtx, w.refreshCancel = nil, nil
}

// refreshLoop refreshes right away and then every refreshInterval until ctx is cancelled
func (w *Wallet) refreshLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.refreshInterval)
	defer ticker.Stop()

	for {
		w.refreshAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scheduleRefreshLocked runs one refresh after delay unless the session ends first
func (w *Wallet) scheduleRefreshLocked(delay time.Duration) {
	ctx := w.refreshCtx
	if ctx == nil {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		w.refreshAll(ctx)
	}()
}

func (w *Wallet) refreshAll(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		w.RefreshBalance(ctx)
		return nil
	})
	g.Go(func() error {
		w.RefreshTransactions(ctx)
		return nil
	})
	_ = g.Wait()
}

// RefreshBalance fetches the native balance of the current account.
// Failures are logged and leave the balance at zero. Results for a view
// that changed while the call was in flight are dropped.
func (w *Wallet) RefreshBalance(ctx context.Context) {
	w.mu.Lock()
	v, ok := w.viewLocked()
	w.mu.Unlock()
	if !ok {
		return
	}

	balance := common.ZeroBalance
	wei, err := w.fetchBalance(ctx, v)
	if err != nil {
		refreshFailures.WithLabelValues("balance").Inc()
		w.log.Warn("failed to fetch balance",
			zap.String("address", v.address), zap.Uint64("chainId", v.network.ChainID), zap.Error(err))
	} else {
		balance = common.FormatBalance(wei, v.network.Decimals)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generationLocked() != v.gen {
		w.log.Debug("dropping stale balance", zap.String("address", v.address))
		return
	}
	w.balance = balance
}

func (w *Wallet) fetchBalance(ctx context.Context, v view) (*big.Int, error) {
	ledger, err := w.dial(ctx, v.network)
	if err != nil {
		return nil, err
	}
	defer closeLedger(ledger)
	return ledger.BalanceAt(ctx, ethcommon.HexToAddress(v.address))
}

// RefreshTransactions fetches recent transactions of the current account from the explorer.
// Failures are logged and leave the list empty. Stale results are dropped.
func (w *Wallet) RefreshTransactions(ctx context.Context) {
	w.mu.Lock()
	v, ok := w.viewLocked()
	w.mu.Unlock()
	if !ok {
		return
	}

	txs, err := w.explorer.Transactions(ctx, v.network.ExplorerURL, v.address)
	if err != nil {
		refreshFailures.WithLabelValues("transactions").Inc()
		w.log.Warn("failed to fetch transactions",
			zap.String("address", v.address), zap.Uint64("chainId", v.network.ChainID), zap.Error(err))
		txs = nil
	}
	txs = recentTransactions(txs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generationLocked() != v.gen {
		w.log.Debug("dropping stale transactions", zap.String("address", v.address))
		return
	}
	w.transactions = txs
}

// recentTransactions sorts newest first and keeps maxTransactions
func recentTransactions(txs []model.Transaction) []model.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b model.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(out) > maxTransactions {
		out = out[:maxTransactions]
	}
	return out
}

func closeLedger(l Ledger) {
	if c, ok := l.(io.Closer); ok {
		_ = c.Close()
	}
}
