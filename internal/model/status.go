package model

// WalletStatus is a read-only snapshot of the wallet session
type WalletStatus struct {
	State          string        `json:"state"`
	IsLocked       bool          `json:"isLocked"`
	HasWallet      bool          `json:"hasWallet"`
	Address        string        `json:"address,omitempty"`
	Balance        string        `json:"balance"`
	Transactions   []Transaction `json:"transactions"`
	Tokens         []Token       `json:"tokens"`
	CurrentNetwork Network       `json:"currentNetwork"`
	Networks       []Network     `json:"networks"`
	Accounts       []AccountInfo `json:"accounts"`
	CurrentAccount *AccountInfo  `json:"currentAccount,omitempty"`
}
