package model

import "math/big"

// FeeData is the ledger's pricing for transaction inclusion.
// Any field may be nil when the ledger could not supply it.
type FeeData struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// HasDynamicFee reports whether both EIP-1559 fields are present
func (f *FeeData) HasDynamicFee() bool {
	return f != nil && f.MaxFeePerGas != nil && f.MaxPriorityFeePerGas != nil
}
