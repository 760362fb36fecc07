package wallet

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlexZinkM/evm-wallet/internal/crypto"
	"github.com/AlexZinkM/evm-wallet/internal/model"
	"github.com/AlexZinkM/evm-wallet/internal/storage"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "Abcdefgh1!"
	testPhrase   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testAddress  = "0x9858effd232b4033e47d90003d41ec34ecaeda94"
	testKey      = "0x1ab42cc412b618bdea3a599e3c9bae199ebf030895b039e9db1e30dafb12b727"

	keyOne     = "0x0000000000000000000000000000000000000000000000000000000000000001"
	keyOneAddr = "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf"

	otherAddress = "0x00000000000000000000000000000000000000aa"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// fakeLedger is an in-memory node
type fakeLedger struct {
	mu       sync.Mutex
	balances map[ethcommon.Address]*big.Int
	gas      uint64
	fees     *model.FeeData
	feeErr   error
	sent     []*types.Transaction
	dials    int
	onSend   func()

	// BalanceAt for blockAddr waits until gate is closed
	blockAddr ethcommon.Address
	gate      chan struct{}
	entered   chan struct{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: map[ethcommon.Address]*big.Int{},
		gas:      21000,
		fees:     &model.FeeData{GasPrice: big.NewInt(10_000_000_000)},
	}
}

func (l *fakeLedger) setBalance(addr string, wei *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[ethcommon.HexToAddress(addr)] = wei
}

func (l *fakeLedger) dial(ctx context.Context, n model.Network) (Ledger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dials++
	return l, nil
}

func (l *fakeLedger) dialCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dials
}

func (l *fakeLedger) sentTxs() []*types.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*types.Transaction(nil), l.sent...)
}

func (l *fakeLedger) BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	l.mu.Lock()
	gate := l.gate
	blocked := gate != nil && account == l.blockAddr
	entered := l.entered
	l.mu.Unlock()

	if blocked {
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return nil, errors.New("header not found")
}

// PendingNonceAt counts transactions already accepted
func (l *fakeLedger) PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.sent)), nil
}

func (l *fakeLedger) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gas, nil
}

func (l *fakeLedger) FeeData(ctx context.Context) (*model.FeeData, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fees, l.feeErr
}

func (l *fakeLedger) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	time.Sleep(5 * time.Millisecond)
	l.mu.Lock()
	l.sent = append(l.sent, tx)
	onSend := l.onSend
	l.mu.Unlock()

	if onSend != nil {
		onSend()
	}
	return nil
}

// fakeExplorer serves transactions per address
type fakeExplorer struct {
	mu    sync.Mutex
	txs   map[string][]model.Transaction
	err   error
	calls int
}

func (e *fakeExplorer) Transactions(ctx context.Context, explorerURL, address string) ([]model.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.txs[strings.ToLower(address)], nil
}

type harness struct {
	w        *Wallet
	ledger   *fakeLedger
	explorer *fakeExplorer
	store    *storage.Store
	opts     Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := storage.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cipher, err := crypto.NewCipher(crypto.Params{N: 1 << 10, R: 8, P: 1})
	require.NoError(t, err)

	h := &harness{
		ledger:   newFakeLedger(),
		explorer: &fakeExplorer{txs: map[string][]model.Transaction{}},
		store:    store,
	}
	h.opts = Options{
		Storage:          store,
		Dial:             h.ledger.dial,
		Explorer:         h.explorer,
		Cipher:           cipher,
		RefreshInterval:  time.Hour,
		SendRefreshDelay: 10 * time.Millisecond,
	}
	h.w = h.reload(t)
	return h
}

// reload builds a fresh Wallet over the same storage, like a process restart
func (h *harness) reload(t *testing.T) *Wallet {
	t.Helper()
	w, err := New(h.opts)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func (h *harness) create(t *testing.T) model.AccountInfo {
	t.Helper()
	info, err := h.w.CreateWallet([]byte(testPassword), testPhrase, "")
	require.NoError(t, err)
	return info
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNew_RefreshTimingDefaults(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name      string
		interval  time.Duration
		delay     time.Duration
		wantEvery time.Duration
		wantDelay time.Duration
	}{
		{"zero", 0, 0, DefaultRefreshInterval, 0},
		{"negative", -time.Second, -time.Second, DefaultRefreshInterval, DefaultSendRefreshDelay},
		{"explicit", time.Minute, 2 * time.Second, time.Minute, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := h.opts
			opts.RefreshInterval = tt.interval
			opts.SendRefreshDelay = tt.delay

			w, err := New(opts)
			require.NoError(t, err)
			t.Cleanup(w.Close)
			assert.Equal(t, tt.wantEvery, w.refreshInterval)
			assert.Equal(t, tt.wantDelay, w.sendRefreshDelay)
		})
	}
}

func TestCreateWallet(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, StateNoWallet, h.w.State())

	info := h.create(t)

	assert.Equal(t, "Account 1", info.Name)
	assert.Equal(t, testAddress, info.Address)
	assert.Equal(t, model.SecretTypePhrase, info.Type)
	assert.Regexp(t, addressRe, info.Address)

	st := h.w.Status()
	assert.Len(t, st.Accounts, 1)
	assert.False(t, st.IsLocked)
	assert.True(t, st.HasWallet)
	assert.Equal(t, string(StateUnlocked), st.State)
	assert.Equal(t, testAddress, st.Address)
	require.NotNil(t, st.CurrentAccount)
	assert.Equal(t, info.ID, st.CurrentAccount.ID)
}

func TestCreateWallet_Rejects(t *testing.T) {
	h := newHarness(t)

	_, err := h.w.CreateWallet([]byte(testPassword), "abandon abandon about", "")
	assert.ErrorIs(t, err, crypto.ErrInvalidPhraseLength)

	_, err = h.w.CreateWallet(nil, testPhrase, "")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.w.ImportWithPrivateKey([]byte(testPassword), "0x1234")
	assert.ErrorIs(t, err, crypto.ErrInvalidPrivateKeyFormat)

	assert.Equal(t, StateNoWallet, h.w.State())
}

func TestCreateWallet_ReplacesAccounts(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	_, err := h.w.ImportAccountWithKey([]byte(testPassword), keyOne, "")
	require.NoError(t, err)
	require.Len(t, h.w.Accounts(), 2)

	info, err := h.w.ImportWithPrivateKey([]byte("other"), keyOne)
	require.NoError(t, err)

	accounts := h.w.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, keyOneAddr, accounts[0].Address)
	assert.Equal(t, model.SecretTypePrivateKey, info.Type)
	assert.Equal(t, "Account 1", info.Name)
}

func TestPersistence_ReloadStartsLocked(t *testing.T) {
	h := newHarness(t)
	info := h.create(t)

	w := h.reload(t)
	assert.Equal(t, StateLocked, w.State())
	assert.True(t, w.IsLocked())

	st := w.Status()
	assert.Empty(t, st.Address)
	require.Len(t, st.Accounts, 1)
	assert.Equal(t, info.Address, st.Accounts[0].Address)

	require.True(t, w.UnlockWallet([]byte(testPassword)))
	addr, ok := w.Address()
	require.True(t, ok)
	assert.Equal(t, testAddress, addr)
}

func TestUnlockWallet_WrongPassword(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	h.w.LockWallet()

	before := h.w.Status()
	assert.False(t, h.w.UnlockWallet([]byte("wrong-password")))
	assert.False(t, h.w.UnlockWallet(nil))

	assert.Equal(t, StateLocked, h.w.State())
	assert.Equal(t, before, h.w.Status())

	_, ok := h.w.Address()
	assert.False(t, ok)
}

func TestUnlockWallet_NoWallet(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.w.UnlockWallet([]byte(testPassword)))
	assert.Equal(t, StateNoWallet, h.w.State())
}

func TestUnlockWallet_RemembersCurrentAccount(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	second, err := h.w.ImportAccountWithKey([]byte(testPassword), keyOne, "Savings")
	require.NoError(t, err)

	ok, err := h.w.SwitchAccount(second.ID)
	require.NoError(t, err)
	require.True(t, ok)

	w := h.reload(t)
	require.True(t, w.UnlockWallet([]byte(testPassword)))

	addr, _ := w.Address()
	assert.Equal(t, keyOneAddr, addr)
	assert.Equal(t, "Savings", w.Status().CurrentAccount.Name)
}

func TestLockWallet(t *testing.T) {
	h := newHarness(t)
	h.ledger.setBalance(testAddress, big.NewInt(1_000_000_000_000_000_000))
	h.create(t)
	h.w.RefreshBalance(context.Background())
	require.Equal(t, "1.000000", h.w.Status().Balance)

	h.w.LockWallet()
	h.w.LockWallet()

	st := h.w.Status()
	assert.True(t, st.IsLocked)
	assert.Empty(t, st.Address)
	assert.Equal(t, "0.000000", st.Balance)
	assert.Empty(t, st.Transactions)

	h.w.RefreshBalance(context.Background())
	assert.Equal(t, "0.000000", h.w.Status().Balance)
}

func TestImportAccount(t *testing.T) {
	h := newHarness(t)
	h.create(t)

	info, err := h.w.ImportAccountWithKey([]byte(testPassword), keyOne, "")
	require.NoError(t, err)
	assert.Equal(t, "Account 2", info.Name)
	assert.Equal(t, keyOneAddr, info.Address)

	phrase, err := crypto.GeneratePhrase(12)
	require.NoError(t, err)
	third, err := h.w.ImportAccount([]byte(testPassword), phrase, "  Trading ")
	require.NoError(t, err)
	assert.Equal(t, "Trading", third.Name)
	assert.Regexp(t, addressRe, third.Address)

	assert.Len(t, h.w.Accounts(), 3)
	assert.Equal(t, testAddress, h.w.Status().CurrentAccount.Address)
}

func TestImportAccount_Rejects(t *testing.T) {
	h := newHarness(t)
	h.create(t)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"wrong password", func() error {
			_, err := h.w.ImportAccountWithKey([]byte("nope"), keyOne, "")
			return err
		}, ErrIncorrectPassword},
		{"duplicate phrase", func() error {
			_, err := h.w.ImportAccount([]byte(testPassword), strings.ToUpper(testPhrase), "")
			return err
		}, ErrDuplicateAccount},
		{"duplicate as raw key", func() error {
			_, err := h.w.ImportAccountWithKey([]byte(testPassword), testKey, "")
			return err
		}, ErrDuplicateAccount},
		{"bad phrase", func() error {
			_, err := h.w.ImportAccount([]byte(testPassword), "one two three", "")
			return err
		}, crypto.ErrInvalidPhraseLength},
		{"bad key", func() error {
			_, err := h.w.ImportAccountWithKey([]byte(testPassword), "0xzz", "")
			return err
		}, crypto.ErrInvalidPrivateKeyFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantErr)
			assert.Len(t, h.w.Accounts(), 1)
		})
	}

	h.w.LockWallet()
	_, err := h.w.ImportAccountWithKey([]byte(testPassword), keyOne, "")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestImportAccount_DuplicateKeyTwice(t *testing.T) {
	h := newHarness(t)
	h.create(t)

	_, err := h.w.ImportAccountWithKey([]byte(testPassword), keyOne, "")
	require.NoError(t, err)
	_, err = h.w.ImportAccountWithKey([]byte(testPassword), strings.TrimPrefix(keyOne, "0x"), "")
	assert.ErrorIs(t, err, ErrDuplicateAccount)
	assert.Len(t, h.w.Accounts(), 2)
}

func TestSwitchAccount(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	second, err := h.w.ImportAccountWithKey([]byte(testPassword), keyOne, "")
	require.NoError(t, err)

	ok, err := h.w.SwitchAccount("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, testAddress, h.w.Status().Address)

	ok, err = h.w.SwitchAccount(second.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	st := h.w.Status()
	assert.Equal(t, keyOneAddr, st.Address)
	assert.Equal(t, "0.000000", st.Balance)
}

func TestRenameAccount(t *testing.T) {
	h := newHarness(t)
	info := h.create(t)

	renamed, err := h.w.RenameAccount(info.ID, "Main")
	require.NoError(t, err)
	assert.Equal(t, "Main", renamed.Name)
	assert.Equal(t, "Main", h.w.Status().CurrentAccount.Name)
	assert.Equal(t, "Main", h.reload(t).Accounts()[0].Name)

	_, err = h.w.RenameAccount("missing", "X")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = h.w.RenameAccount(info.ID, "   ")
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestRemoveAccount(t *testing.T) {
	h := newHarness(t)
	first := h.create(t)

	assert.ErrorIs(t, h.w.RemoveAccount(first.ID), ErrLastAccountProtected)
	require.Len(t, h.w.Accounts(), 1)
	assert.Equal(t, first.ID, h.w.Accounts()[0].ID)

	second, err := h.w.ImportAccountWithKey([]byte(testPassword), keyOne, "")
	require.NoError(t, err)
	assert.ErrorIs(t, h.w.RemoveAccount("missing"), ErrAccountNotFound)

	require.NoError(t, h.w.RemoveAccount(first.ID))

	accounts := h.w.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, second.ID, accounts[0].ID)
	assert.Equal(t, keyOneAddr, h.w.Status().Address)

	w := h.reload(t)
	require.True(t, w.UnlockWallet([]byte(testPassword)))
	assert.Equal(t, second.ID, w.Status().CurrentAccount.ID)
}

func TestExportPrivateKey(t *testing.T) {
	h := newHarness(t)

	_, ok := h.w.ExportPrivateKey([]byte(testPassword))
	assert.False(t, ok)

	h.create(t)
	key, ok := h.w.ExportPrivateKey([]byte(testPassword))
	require.True(t, ok)
	assert.Equal(t, testKey, key)

	key, ok = h.w.ExportPrivateKey([]byte("wrong"))
	assert.False(t, ok)
	assert.Empty(t, key)

	_, err := h.w.ImportWithPrivateKey([]byte(testPassword), " "+strings.ToUpper(strings.TrimPrefix(keyOne, "0x")))
	require.NoError(t, err)
	key, ok = h.w.ExportPrivateKey([]byte(testPassword))
	require.True(t, ok)
	assert.Equal(t, keyOne, key)
}

func TestDeleteWallet(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	_, err := h.w.AddNetwork(model.Network{ChainID: 1, RPCURL: "http://x", Name: "X", Symbol: "X"})
	require.NoError(t, err)
	_, err = h.w.AddToken(model.Token{Address: otherAddress, Symbol: "TKN"})
	require.NoError(t, err)

	require.NoError(t, h.w.DeleteWallet())

	st := h.w.Status()
	assert.Equal(t, string(StateNoWallet), st.State)
	assert.False(t, st.HasWallet)
	assert.Empty(t, st.Accounts)
	assert.Empty(t, st.Tokens)
	assert.Equal(t, DefaultNetworks(), st.Networks)

	for _, key := range allKeys {
		raw, err := h.store.Get(key)
		require.NoError(t, err)
		assert.Nil(t, raw, key)
	}
	assert.Equal(t, StateNoWallet, h.reload(t).State())
}

func TestDeleteWallet_Locked(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	_, err := h.w.AddNetwork(model.Network{ChainID: 1, RPCURL: "http://x", Name: "X", Symbol: "X"})
	require.NoError(t, err)
	_, err = h.w.SwitchNetwork(1)
	require.NoError(t, err)
	_, err = h.w.AddToken(model.Token{Address: otherAddress, Symbol: "TKN"})
	require.NoError(t, err)
	h.w.LockWallet()

	assert.ErrorIs(t, h.w.DeleteWallet(), ErrWalletLocked)
	assert.Equal(t, StateLocked, h.w.State())
	assert.Len(t, h.w.Networks(), 2)
	assert.Len(t, h.w.Tokens(), 1)

	for _, key := range allKeys {
		raw, err := h.store.Get(key)
		require.NoError(t, err)
		assert.NotNil(t, raw, key)
	}
	assert.Equal(t, StateLocked, h.reload(t).State())
}

func TestDeleteWallet_NoWallet(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.w.DeleteWallet(), ErrNoActiveAccount)
	assert.Equal(t, StateNoWallet, h.w.State())
}
