package model

// Token is a user-added token kept for display only
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
	Logo     string `json:"logo,omitempty"`
}
