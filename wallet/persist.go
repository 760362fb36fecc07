package wallet

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Persisted keys. A missing key means default/empty.
const (
	keyAccounts         = "accounts"
	keyCurrentAccountID = "currentAccountId"
	keyCustomNetworks   = "customNetworks"
	keySelectedNetwork  = "selectedNetwork"
	keyCustomTokens     = "customTokens"
)

var allKeys = []string{keyAccounts, keyCurrentAccountID, keyCustomNetworks, keySelectedNetwork, keyCustomTokens}

// Storage is a key-value store of JSON blobs.
// Write must apply puts and deletes atomically.
type Storage interface {
	Get(key string) ([]byte, error)
	Write(puts map[string][]byte, deletes ...string) error
}

// readJSON decodes key into v. Absent keys leave v untouched.
// Undecodable values are logged and ignored, like absent keys.
func readJSON(s Storage, log *zap.Logger, key string, v any) error {
	raw, err := s.Get(key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Warn("ignoring corrupt stored value", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// batch collects the values of one atomic write
type batch map[string][]byte

func (b batch) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	b[key] = raw
	return nil
}

func (b batch) putChainID(chainID uint64) error {
	return b.put(keySelectedNetwork, strconv.FormatUint(chainID, 10))
}
