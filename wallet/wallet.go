// Package wallet is the key-management core: accounts sealed under one password,
// the network registry, the lock state machine and transaction signing.
package wallet

import (
	"context"
	"errors"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/AlexZinkM/evm-wallet/internal/common"
	"github.com/AlexZinkM/evm-wallet/internal/crypto"
	"github.com/AlexZinkM/evm-wallet/internal/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	DefaultRefreshInterval  = 30 * time.Second
	DefaultSendRefreshDelay = 1500 * time.Millisecond
)

// Ledger is the subset of JSON-RPC the wallet needs from a node
type Ledger interface {
	BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	FeeData(ctx context.Context) (*model.FeeData, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Dialer opens a Ledger for a network. If the Ledger is an io.Closer it is closed after use.
type Dialer func(ctx context.Context, network model.Network) (Ledger, error)

// Explorer lists the recent transactions of an address
type Explorer interface {
	Transactions(ctx context.Context, explorerURL, address string) ([]model.Transaction, error)
}

// Options configures a Wallet. Storage, Dial, Explorer and Cipher are required.
type Options struct {
	Storage          Storage
	Dial             Dialer
	Explorer         Explorer
	Cipher           *crypto.Cipher
	Strategies       []crypto.Strategy // defaults to crypto.Strategies(false)
	RefreshInterval  time.Duration     // zero or negative uses DefaultRefreshInterval
	SendRefreshDelay time.Duration     // zero refreshes right after a send, negative uses DefaultSendRefreshDelay
	Logger           *zap.Logger
}

// Wallet owns the accounts, networks and tokens and the session built on them.
// All mutation goes through its methods.
type Wallet struct {
	// opMu serializes mutating operations, including their crypto and storage I/O.
	// mu guards the fields below and is never held across I/O or scrypt.
	opMu sync.Mutex
	mu   sync.Mutex

	store            Storage
	dial             Dialer
	explorer         Explorer
	cipher           *crypto.Cipher
	strategies       []crypto.Strategy
	refreshInterval  time.Duration
	sendRefreshDelay time.Duration
	log              *zap.Logger

	accounts accountStore
	networks networkRegistry
	tokens   []model.Token
	session  *session

	epoch        uint64
	balance      string
	transactions []model.Transaction

	refreshCtx    context.Context
	refreshCancel context.CancelFunc
	wg            sync.WaitGroup

	sendLocks sendLocks
}

// New loads persisted state. The wallet starts Locked when accounts exist, else NoWallet.
func New(opts Options) (*Wallet, error) {
	if opts.Storage == nil || opts.Dial == nil || opts.Explorer == nil || opts.Cipher == nil {
		return nil, errors.New("wallet: storage, dialer, explorer and cipher are required")
	}

	w := &Wallet{
		store:            opts.Storage,
		dial:             opts.Dial,
		explorer:         opts.Explorer,
		cipher:           opts.Cipher,
		strategies:       opts.Strategies,
		refreshInterval:  opts.RefreshInterval,
		sendRefreshDelay: opts.SendRefreshDelay,
		log:              opts.Logger,
		balance:          common.ZeroBalance,
		sendLocks:        sendLocks{},
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	if len(w.strategies) == 0 {
		w.strategies = crypto.Strategies(false)
	}
	if w.refreshInterval <= 0 {
		w.refreshInterval = DefaultRefreshInterval
	}
	if w.sendRefreshDelay < 0 {
		w.sendRefreshDelay = DefaultSendRefreshDelay
	}

	var err error
	if w.accounts, err = loadAccounts(w.store, w.log); err != nil {
		return nil, err
	}
	if w.networks, err = loadNetworks(w.store, w.log); err != nil {
		return nil, err
	}
	if err = readJSON(w.store, w.log, keyCustomTokens, &w.tokens); err != nil {
		return nil, err
	}

	w.log.Info("wallet loaded",
		zap.String("state", string(w.stateLocked())),
		zap.Int("accounts", len(w.accounts.accounts)),
		zap.Uint64("chainId", w.networks.currentID))
	return w, nil
}

// Accounts lists every account without secret material
func (w *Wallet) Accounts() []model.AccountInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accounts.infos()
}

// Address returns the current account address while unlocked
func (w *Wallet) Address() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return "", false
	}
	a, ok := w.accounts.current()
	return a.Address, ok
}

// Status is a read-only snapshot for the UI layer
func (w *Wallet) Status() model.WalletStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.stateLocked()
	st := model.WalletStatus{
		State:          string(state),
		IsLocked:       state != StateUnlocked,
		HasWallet:      state != StateNoWallet,
		Balance:        w.balance,
		Transactions:   slices.Clone(w.transactions),
		Tokens:         slices.Clone(w.tokens),
		CurrentNetwork: w.networks.current(),
		Networks:       w.networks.all(),
		Accounts:       w.accounts.infos(),
	}
	if st.Transactions == nil {
		st.Transactions = []model.Transaction{}
	}
	if st.Tokens == nil {
		st.Tokens = []model.Token{}
	}
	if a, ok := w.accounts.current(); ok {
		info := a.Info()
		st.CurrentAccount = &info
		if state == StateUnlocked {
			st.Address = a.Address
		}
	}
	return st
}

// Close stops background refreshes and waits for them to return
func (w *Wallet) Close() {
	w.mu.Lock()
	w.stopRefresherLocked()
	w.mu.Unlock()
	w.wg.Wait()
}
