package model

import "time"

// AddressRef is an address object as returned by the explorer
type AddressRef struct {
	Hash string `json:"hash"`
}

// Transaction is one entry of the explorer's address transaction list
type Transaction struct {
	Hash      string      `json:"hash"`
	From      *AddressRef `json:"from"`
	To        *AddressRef `json:"to"` // nil for contract creation
	Value     string      `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
	Result    string      `json:"result"`
}

// TransactionsResponse is the explorer's /addresses/{address}/transactions body
type TransactionsResponse struct {
	Items []Transaction `json:"items"`
}
