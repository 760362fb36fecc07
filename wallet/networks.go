package wallet

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/AlexZinkM/evm-wallet/internal/model"

	"go.uber.org/zap"
)

const defaultDecimals = 18

var defaultNetworks = []model.Network{
	{
		ChainID:     990715,
		RPCURL:      "https://testnet-rpc1.ibosol.network",
		Name:        "IBOSOL Testnet",
		Symbol:      "IBO",
		Decimals:    defaultDecimals,
		ExplorerURL: "https://testnet-explorer.ibosol.network",
	},
}

// DefaultNetworks returns the built-in networks. They are never persisted nor removable.
func DefaultNetworks() []model.Network {
	return slices.Clone(defaultNetworks)
}

// networkRegistry is the set of default + custom networks and the selected one
type networkRegistry struct {
	custom    []model.Network
	currentID uint64
}

func newNetworkRegistry(custom []model.Network, selected uint64) networkRegistry {
	r := networkRegistry{custom: custom, currentID: defaultNetworks[0].ChainID}
	if _, ok := r.find(selected); ok {
		r.currentID = selected
	}
	return r
}

func loadNetworks(s Storage, log *zap.Logger) (networkRegistry, error) {
	var custom []model.Network
	if err := readJSON(s, log, keyCustomNetworks, &custom); err != nil {
		return networkRegistry{}, err
	}
	custom = slices.DeleteFunc(custom, func(n model.Network) bool {
		return slices.ContainsFunc(defaultNetworks, func(d model.Network) bool { return d.ChainID == n.ChainID })
	})
	for i := range custom {
		custom[i].IsCustom = true
	}

	var selected string
	if err := readJSON(s, log, keySelectedNetwork, &selected); err != nil {
		return networkRegistry{}, err
	}
	chainID, _ := strconv.ParseUint(selected, 10, 64)
	return newNetworkRegistry(custom, chainID), nil
}

func (r networkRegistry) all() []model.Network {
	return append(DefaultNetworks(), r.custom...)
}

func (r networkRegistry) find(chainID uint64) (model.Network, bool) {
	for _, n := range r.all() {
		if n.ChainID == chainID {
			return n, true
		}
	}
	return model.Network{}, false
}

func (r networkRegistry) current() model.Network {
	n, _ := r.find(r.currentID)
	return n
}

func validateNetwork(n model.Network) error {
	var missing []string
	if n.ChainID == 0 {
		missing = append(missing, "chainId")
	}
	if n.RPCURL == "" {
		missing = append(missing, "rpcUrl")
	}
	if n.Name == "" {
		missing = append(missing, "name")
	}
	if n.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredField, strings.Join(missing, ", "))
	}
	if n.Decimals < 0 {
		return fmt.Errorf("%w: decimals must not be negative", ErrMissingRequiredField)
	}
	return nil
}

// Networks lists default networks followed by custom ones
func (w *Wallet) Networks() []model.Network {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.networks.all()
}

// CurrentNetwork returns the selected network
func (w *Wallet) CurrentNetwork() model.Network {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.networks.current()
}

// AddNetwork registers a custom network. The stored record is always tagged custom.
func (w *Wallet) AddNetwork(n model.Network) (model.Network, error) {
	n.RPCURL = strings.TrimSpace(n.RPCURL)
	n.Name = strings.TrimSpace(n.Name)
	n.Symbol = strings.TrimSpace(n.Symbol)
	n.ExplorerURL = strings.TrimRight(strings.TrimSpace(n.ExplorerURL), "/")
	if err := validateNetwork(n); err != nil {
		return model.Network{}, err
	}
	n.IsCustom = true

	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	r := w.networks
	w.mu.Unlock()

	if _, ok := r.find(n.ChainID); ok {
		return model.Network{}, ErrDuplicateChainID
	}

	custom := append(slices.Clone(r.custom), n)
	b := batch{}
	if err := b.put(keyCustomNetworks, custom); err != nil {
		return model.Network{}, err
	}
	if err := w.store.Write(b); err != nil {
		return model.Network{}, fmt.Errorf("failed to save networks: %w", err)
	}

	w.mu.Lock()
	w.networks.custom = custom
	w.mu.Unlock()

	w.log.Info("network added", zap.Uint64("chainId", n.ChainID), zap.String("name", n.Name))
	return n, nil
}

// RemoveNetwork deletes a custom network. Unknown chain ids are ignored.
// Removing the selected network switches back to the default one.
func (w *Wallet) RemoveNetwork(chainID uint64) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	r := w.networks
	w.mu.Unlock()

	n, ok := r.find(chainID)
	if !ok {
		return nil
	}
	if !n.IsCustom {
		return ErrCannotRemoveDefault
	}

	next := networkRegistry{
		custom:    slices.DeleteFunc(slices.Clone(r.custom), func(c model.Network) bool { return c.ChainID == chainID }),
		currentID: r.currentID,
	}
	b := batch{}
	if err := b.put(keyCustomNetworks, next.custom); err != nil {
		return err
	}
	if r.currentID == chainID {
		next.currentID = defaultNetworks[0].ChainID
		if err := b.putChainID(next.currentID); err != nil {
			return err
		}
	}
	if err := w.store.Write(b); err != nil {
		return fmt.Errorf("failed to save networks: %w", err)
	}

	w.mu.Lock()
	w.networks = next
	if next.currentID != r.currentID {
		w.resetViewLocked()
		w.scheduleRefreshLocked(0)
	}
	w.mu.Unlock()

	w.log.Info("network removed", zap.Uint64("chainId", chainID))
	return nil
}

// SwitchNetwork selects a network. Unknown chain ids are ignored (returns false).
func (w *Wallet) SwitchNetwork(chainID uint64) (bool, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	r := w.networks
	w.mu.Unlock()

	if _, ok := r.find(chainID); !ok {
		return false, nil
	}

	b := batch{}
	if err := b.putChainID(chainID); err != nil {
		return false, err
	}
	if err := w.store.Write(b); err != nil {
		return false, fmt.Errorf("failed to save selected network: %w", err)
	}

	w.mu.Lock()
	w.networks.currentID = chainID
	w.resetViewLocked()
	w.scheduleRefreshLocked(0)
	w.mu.Unlock()
	return true, nil
}
