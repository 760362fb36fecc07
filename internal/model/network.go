package model

// Network is an EVM chain the wallet can talk to
type Network struct {
	ChainID     uint64 `json:"chainId"`
	RPCURL      string `json:"rpcUrl"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	ExplorerURL string `json:"explorerUrl"`
	IsCustom    bool   `json:"isCustom,omitempty"`
}

// NetworkRequest represents request for POST /api/v1/networks.
// Decimals defaults to 18 when omitted.
type NetworkRequest struct {
	ChainID     uint64 `json:"chainId"`
	RPCURL      string `json:"rpcUrl"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    *int   `json:"decimals,omitempty"`
	ExplorerURL string `json:"explorerUrl"`
}
