package wallet

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/AlexZinkM/evm-wallet/internal/common"

	"go.uber.org/zap"
)

// State is the lock state of the wallet
type State string

const (
	StateNoWallet State = "noWallet"
	StateLocked   State = "locked"
	StateUnlocked State = "unlocked"
)

// session holds the password between unlock and lock.
// A nil *session means the wallet is locked.
type session struct {
	password []byte
}

func newSession(password []byte) *session {
	return &session{password: append([]byte(nil), password...)}
}

func (s *session) matches(password []byte) bool {
	if s == nil || len(password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.password, password) == 1
}

// passwordCopy returns a copy the caller must clear
func (s *session) passwordCopy() []byte {
	return append([]byte(nil), s.password...)
}

func (s *session) destroy() {
	if s != nil {
		clear(s.password)
		s.password = nil
	}
}

// generation identifies the view a background result was requested for
type generation struct {
	epoch     uint64
	accountID string
	chainID   uint64
}

// sendLocks serializes SendTransaction per account
type sendLocks map[string]*sync.Mutex

func (l sendLocks) get(accountID string) *sync.Mutex {
	m, ok := l[accountID]
	if !ok {
		m = &sync.Mutex{}
		l[accountID] = m
	}
	return m
}

func (l sendLocks) forget(accountID string) {
	delete(l, accountID)
}

// State reports NoWallet, Locked or Unlocked
func (w *Wallet) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wallet) stateLocked() State {
	switch {
	case len(w.accounts.accounts) == 0:
		return StateNoWallet
	case w.session == nil:
		return StateLocked
	default:
		return StateUnlocked
	}
}

// IsLocked reports whether no session password is held
func (w *Wallet) IsLocked() bool {
	return w.State() != StateUnlocked
}

// startSessionLocked replaces the session and restarts background refresh
func (w *Wallet) startSessionLocked(password []byte) {
	w.session.destroy()
	w.session = newSession(password)
	w.resetViewLocked()
	w.startRefresherLocked()
}

// endSessionLocked drops the session password and every cached view of the chain
func (w *Wallet) endSessionLocked() {
	w.stopRefresherLocked()
	w.session.destroy()
	w.session = nil
	w.resetViewLocked()
}

// resetViewLocked invalidates in-flight refreshes and clears balance and transactions
func (w *Wallet) resetViewLocked() {
	w.epoch++
	w.balance = common.ZeroBalance
	w.transactions = nil
}

func (w *Wallet) generationLocked() generation {
	return generation{epoch: w.epoch, accountID: w.accounts.currentID, chainID: w.networks.currentID}
}

// UnlockWallet checks password against the first account's secret.
// On success the remembered account (or the first one) becomes current.
// A wrong password returns false and changes nothing.
// password must be []byte for security (caller should zero it after use)
func (w *Wallet) UnlockWallet(password []byte) bool {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	st := w.accounts
	w.mu.Unlock()

	if len(st.accounts) == 0 || len(password) == 0 {
		return false
	}

	plaintext, err := w.cipher.Open(st.accounts[0].EncryptedKey, password)
	if err != nil {
		unlockFailures.Inc()
		w.log.Info("unlock rejected", zap.Error(err))
		return false
	}
	clear(plaintext)

	w.mu.Lock()
	if _, ok := w.accounts.current(); !ok {
		w.accounts.currentID = w.accounts.accounts[0].ID
	}
	w.startSessionLocked(password)
	w.mu.Unlock()

	w.log.Info("wallet unlocked")
	return true
}

// LockWallet forgets the session password and cached chain data. It always succeeds.
func (w *Wallet) LockWallet() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != nil {
		w.log.Info("wallet locked")
	}
	w.endSessionLocked()
}

// DeleteWallet wipes every persisted key and returns to NoWallet.
// Networks fall back to the defaults and tokens to empty.
// Only an unlocked wallet can be deleted.
func (w *Wallet) DeleteWallet() error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	state := w.stateLocked()
	w.mu.Unlock()
	switch state {
	case StateNoWallet:
		return ErrNoActiveAccount
	case StateLocked:
		return ErrWalletLocked
	}

	if err := w.store.Write(nil, allKeys...); err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}

	w.mu.Lock()
	w.endSessionLocked()
	w.accounts = accountStore{}
	w.networks = newNetworkRegistry(nil, 0)
	w.tokens = nil
	w.sendLocks = sendLocks{}
	w.mu.Unlock()

	w.log.Info("wallet deleted")
	return nil
}
