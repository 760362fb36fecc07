package model

// SendRequest represents request for POST /api/v1/send
type SendRequest struct {
	ToAddress string `json:"toAddress"`
	Amount    string `json:"amount"`
}

// SendResponse represents response for POST /api/v1/send
type SendResponse struct {
	TxHash string `json:"txHash"`
}
