package wallet

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AlexZinkM/evm-wallet/internal/common"
	"github.com/AlexZinkM/evm-wallet/internal/crypto"
	"github.com/AlexZinkM/evm-wallet/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// accountStore is the in-memory mirror of the persisted accounts.
// Methods never mutate in place; they return the next store.
type accountStore struct {
	accounts  []model.Account
	currentID string
}

func loadAccounts(s Storage, log *zap.Logger) (accountStore, error) {
	var st accountStore
	if err := readJSON(s, log, keyAccounts, &st.accounts); err != nil {
		return st, err
	}
	if err := readJSON(s, log, keyCurrentAccountID, &st.currentID); err != nil {
		return st, err
	}
	if _, ok := st.find(st.currentID); !ok {
		st.currentID = ""
	}
	return st, nil
}

func (st accountStore) find(id string) (model.Account, bool) {
	i := slices.IndexFunc(st.accounts, func(a model.Account) bool { return a.ID == id })
	if i < 0 {
		return model.Account{}, false
	}
	return st.accounts[i], true
}

func (st accountStore) current() (model.Account, bool) {
	if st.currentID == "" {
		return model.Account{}, false
	}
	return st.find(st.currentID)
}

func (st accountStore) hasAddress(address string) bool {
	return slices.ContainsFunc(st.accounts, func(a model.Account) bool {
		return common.SameAddress(a.Address, address)
	})
}

func (st accountStore) infos() []model.AccountInfo {
	out := make([]model.AccountInfo, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a.Info())
	}
	return out
}

func (st accountStore) withAppended(a model.Account) accountStore {
	return accountStore{accounts: append(slices.Clone(st.accounts), a), currentID: st.currentID}
}

func (st accountStore) withRenamed(id, name string) accountStore {
	next := accountStore{accounts: slices.Clone(st.accounts), currentID: st.currentID}
	for i := range next.accounts {
		if next.accounts[i].ID == id {
			next.accounts[i].Name = name
		}
	}
	return next
}

func (st accountStore) withRemoved(id string) accountStore {
	next := accountStore{
		accounts:  slices.DeleteFunc(slices.Clone(st.accounts), func(a model.Account) bool { return a.ID == id }),
		currentID: st.currentID,
	}
	if next.currentID == id {
		next.currentID = next.accounts[0].ID
	}
	return next
}

// secret is a plaintext account secret together with the address it derives to.
// Callers must destroy it once sealed.
type secret struct {
	kind      model.SecretType
	plaintext []byte
	address   string
}

func (s *secret) destroy() {
	clear(s.plaintext)
}

// phraseSecret normalizes and validates a recovery phrase and derives its address
func (w *Wallet) phraseSecret(phrase string) (*secret, error) {
	normalized := crypto.NormalizePhrase(phrase)
	d, err := crypto.DeriveFromPhrase(normalized, w.strategies)
	if err != nil {
		return nil, err
	}
	defer clear(d.PrivateKey)

	if len(d.Attempts) > 0 {
		w.log.Warn("recovery phrase is not a valid BIP39 mnemonic, derived with fallback",
			zap.String("strategy", d.Strategy))
	}

	address, err := crypto.AddressFromPrivateKey(d.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %w", err)
	}
	return &secret{kind: model.SecretTypePhrase, plaintext: []byte(normalized), address: address}, nil
}

// keySecret validates a raw hex private key and derives its address.
// The key is kept as 0x + lowercase hex.
func (w *Wallet) keySecret(privateKey string) (*secret, error) {
	key, err := crypto.PrivateKeyFromHex(privateKey)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	address, err := crypto.AddressFromPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %w", err)
	}
	return &secret{kind: model.SecretTypePrivateKey, plaintext: []byte(common.BytesToHex(key)), address: address}, nil
}

// seal encrypts the secret under password into a new account record
func (w *Wallet) seal(s *secret, name string, password []byte) (model.Account, error) {
	sealed, err := w.cipher.Seal(s.plaintext, password)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to encrypt secret: %w", err)
	}
	return model.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Address:      s.address,
		EncryptedKey: sealed,
		Type:         s.kind,
	}, nil
}

// privateKey opens an account's secret and turns it back into the signing key.
// Decryption errors are returned unchanged.
func (w *Wallet) privateKey(a model.Account, password []byte) ([]byte, error) {
	plaintext, err := w.cipher.Open(a.EncryptedKey, password)
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	var key []byte
	switch a.Type {
	case model.SecretTypePrivateKey:
		key, err = crypto.PrivateKeyFromHex(string(plaintext))
	case model.SecretTypePhrase:
		key, err = crypto.PrivateKeyFromPhrase(string(plaintext), w.strategies)
	default:
		err = fmt.Errorf("unknown secret type %q", a.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restore private key: %w", err)
	}

	address, err := crypto.AddressFromPrivateKey(key)
	if err != nil {
		clear(key)
		return nil, err
	}
	if !common.SameAddress(address, a.Address) {
		clear(key)
		return nil, ErrKeyAccountMismatch
	}
	return key, nil
}

// CreateWallet replaces every account with one derived from phrase and unlocks the wallet.
// An empty name becomes "Account 1".
// password must be []byte for security (caller should zero it after use)
func (w *Wallet) CreateWallet(password []byte, phrase, name string) (model.AccountInfo, error) {
	if len(password) == 0 {
		return model.AccountInfo{}, ErrEmptyPassword
	}

	w.opMu.Lock()
	defer w.opMu.Unlock()

	s, err := w.phraseSecret(phrase)
	if err != nil {
		return model.AccountInfo{}, err
	}
	defer s.destroy()

	return w.replaceAccounts(s, defaultName(name, 0), password)
}

// ImportWallet is CreateWallet with the default account name
func (w *Wallet) ImportWallet(password []byte, phrase string) (model.AccountInfo, error) {
	return w.CreateWallet(password, phrase, "")
}

// ImportWithPrivateKey replaces every account with one holding a raw private key and unlocks the wallet
func (w *Wallet) ImportWithPrivateKey(password []byte, privateKey string) (model.AccountInfo, error) {
	if len(password) == 0 {
		return model.AccountInfo{}, ErrEmptyPassword
	}

	w.opMu.Lock()
	defer w.opMu.Unlock()

	s, err := w.keySecret(privateKey)
	if err != nil {
		return model.AccountInfo{}, err
	}
	defer s.destroy()

	return w.replaceAccounts(s, defaultName("", 0), password)
}

func (w *Wallet) replaceAccounts(s *secret, name string, password []byte) (model.AccountInfo, error) {
	a, err := w.seal(s, name, password)
	if err != nil {
		return model.AccountInfo{}, err
	}

	next := accountStore{accounts: []model.Account{a}, currentID: a.ID}
	b := batch{}
	if err := b.put(keyAccounts, next.accounts); err != nil {
		return model.AccountInfo{}, err
	}
	if err := b.put(keyCurrentAccountID, next.currentID); err != nil {
		return model.AccountInfo{}, err
	}
	if err := w.store.Write(b); err != nil {
		return model.AccountInfo{}, fmt.Errorf("failed to save wallet: %w", err)
	}

	w.mu.Lock()
	w.accounts = next
	w.startSessionLocked(password)
	w.mu.Unlock()

	w.log.Info("wallet created", zap.String("address", a.Address), zap.String("type", string(a.Type)))
	return a.Info(), nil
}

// ImportAccount adds an account from a recovery phrase.
// password must equal the session password, otherwise ErrIncorrectPassword.
func (w *Wallet) ImportAccount(password []byte, phrase, name string) (model.AccountInfo, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if !w.checkSessionPassword(password) {
		return model.AccountInfo{}, ErrIncorrectPassword
	}

	s, err := w.phraseSecret(phrase)
	if err != nil {
		return model.AccountInfo{}, err
	}
	defer s.destroy()

	return w.appendAccount(s, name, password)
}

// ImportAccountWithKey adds an account from a raw private key.
// password must equal the session password, otherwise ErrIncorrectPassword.
func (w *Wallet) ImportAccountWithKey(password []byte, privateKey, name string) (model.AccountInfo, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if !w.checkSessionPassword(password) {
		return model.AccountInfo{}, ErrIncorrectPassword
	}

	s, err := w.keySecret(privateKey)
	if err != nil {
		return model.AccountInfo{}, err
	}
	defer s.destroy()

	return w.appendAccount(s, name, password)
}

func (w *Wallet) checkSessionPassword(password []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.matches(password)
}

func (w *Wallet) appendAccount(s *secret, name string, password []byte) (model.AccountInfo, error) {
	w.mu.Lock()
	st := w.accounts
	w.mu.Unlock()

	if st.hasAddress(s.address) {
		return model.AccountInfo{}, ErrDuplicateAccount
	}

	a, err := w.seal(s, defaultName(name, len(st.accounts)), password)
	if err != nil {
		return model.AccountInfo{}, err
	}

	next := st.withAppended(a)
	b := batch{}
	if err := b.put(keyAccounts, next.accounts); err != nil {
		return model.AccountInfo{}, err
	}
	if err := w.store.Write(b); err != nil {
		return model.AccountInfo{}, fmt.Errorf("failed to save accounts: %w", err)
	}

	w.mu.Lock()
	w.accounts = next
	w.mu.Unlock()

	w.log.Info("account imported", zap.String("address", a.Address), zap.String("type", string(a.Type)))
	return a.Info(), nil
}

// SwitchAccount selects the account with id. Unknown ids are ignored (returns false).
func (w *Wallet) SwitchAccount(id string) (bool, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	st := w.accounts
	w.mu.Unlock()

	if _, ok := st.find(id); !ok {
		return false, nil
	}

	b := batch{}
	if err := b.put(keyCurrentAccountID, id); err != nil {
		return false, err
	}
	if err := w.store.Write(b); err != nil {
		return false, fmt.Errorf("failed to save current account: %w", err)
	}

	w.mu.Lock()
	w.accounts.currentID = id
	w.resetViewLocked()
	w.scheduleRefreshLocked(0)
	w.mu.Unlock()
	return true, nil
}

// RenameAccount changes the label of an account
func (w *Wallet) RenameAccount(id, name string) (model.AccountInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.AccountInfo{}, fmt.Errorf("%w: name", ErrMissingRequiredField)
	}

	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	st := w.accounts
	w.mu.Unlock()

	a, ok := st.find(id)
	if !ok {
		return model.AccountInfo{}, ErrAccountNotFound
	}

	next := st.withRenamed(id, name)
	b := batch{}
	if err := b.put(keyAccounts, next.accounts); err != nil {
		return model.AccountInfo{}, err
	}
	if err := w.store.Write(b); err != nil {
		return model.AccountInfo{}, fmt.Errorf("failed to save accounts: %w", err)
	}

	w.mu.Lock()
	w.accounts = next
	w.mu.Unlock()

	a.Name = name
	return a.Info(), nil
}

// RemoveAccount deletes an account. The last account can never be removed.
// Removing the current account selects the first remaining one.
func (w *Wallet) RemoveAccount(id string) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	st := w.accounts
	w.mu.Unlock()

	if len(st.accounts) <= 1 {
		return ErrLastAccountProtected
	}
	if _, ok := st.find(id); !ok {
		return ErrAccountNotFound
	}

	next := st.withRemoved(id)
	b := batch{}
	if err := b.put(keyAccounts, next.accounts); err != nil {
		return err
	}
	if next.currentID != st.currentID {
		if err := b.put(keyCurrentAccountID, next.currentID); err != nil {
			return err
		}
	}
	if err := w.store.Write(b); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	w.mu.Lock()
	w.accounts = next
	if next.currentID != st.currentID {
		w.resetViewLocked()
		w.scheduleRefreshLocked(0)
	}
	w.sendLocks.forget(id)
	w.mu.Unlock()

	w.log.Info("account removed", zap.String("id", id))
	return nil
}

// ExportPrivateKey reveals the current account's private key as 0x + 64 hex.
// Any failure, including a wrong password, returns ("", false).
func (w *Wallet) ExportPrivateKey(password []byte) (string, bool) {
	w.mu.Lock()
	a, ok := w.accounts.current()
	w.mu.Unlock()
	if !ok {
		return "", false
	}

	key, err := w.privateKey(a, password)
	if err != nil {
		w.log.Debug("export private key failed", zap.Error(err))
		return "", false
	}
	defer clear(key)
	return common.BytesToHex(key), true
}

func defaultName(name string, existing int) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fmt.Sprintf("Account %d", existing+1)
}
