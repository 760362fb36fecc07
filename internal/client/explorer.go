package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AlexZinkM/evm-wallet/internal/model"
)

// ExplorerClient client for the Blockscout-style explorer API
type ExplorerClient struct {
	client *http.Client
}

// NewExplorerClient creates a new explorer client
func NewExplorerClient(timeout time.Duration) *ExplorerClient {
	return &ExplorerClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transactions gets the address transactions listed by the explorer at explorerURL
func (c *ExplorerClient) Transactions(ctx context.Context, explorerURL, address string) ([]model.Transaction, error) {
	if explorerURL == "" {
		return nil, fmt.Errorf("network has no explorer URL")
	}
	endpoint := fmt.Sprintf("%s/backend/api/v2/addresses/%s/transactions",
		strings.TrimRight(explorerURL, "/"), url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get transactions: status %d", resp.StatusCode)
	}

	var txResp model.TransactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&txResp); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txResp.Items, nil
}
