package client

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/AlexZinkM/evm-wallet/internal/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const (
	defaultPriorityFee = 1_000_000_000 // 1 gwei when the node has no eth_maxPriorityFeePerGas
)

// EthereumClient is a client for the few JSON-RPC calls the wallet needs
type EthereumClient struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	rpcURL    string
	log       *zap.Logger
}

// DialEthereum connects to a JSON-RPC endpoint over HTTP.
// timeout bounds every request made through the client.
func DialEthereum(ctx context.Context, rpcURL string, timeout time.Duration, log *zap.Logger) (*EthereumClient, error) {
	if log == nil {
		log = zap.NewNop()
	}

	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}

	return &EthereumClient{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		rpcURL:    rpcURL,
		log:       log.With(zap.String("rpc", rpcURL)),
	}, nil
}

// BalanceAt gets the latest balance in smallest units
func (c *EthereumClient) BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	balance, err := c.ethClient.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// PendingNonceAt gets the transaction count including pending transactions
func (c *EthereumClient) PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error) {
	nonce, err := c.ethClient.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// EstimateGas estimates the gas limit of the candidate transaction
func (c *EthereumClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := c.ethClient.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// FeeData collects legacy and EIP-1559 pricing.
// maxFeePerGas = 2 * baseFee + maxPriorityFeePerGas when the latest block has a base fee.
// Fields the node cannot supply are left nil.
func (c *EthereumClient) FeeData(ctx context.Context) (*model.FeeData, error) {
	fd := &model.FeeData{}

	gasPrice, gasPriceErr := c.ethClient.SuggestGasPrice(ctx)
	if gasPriceErr == nil {
		fd.GasPrice = gasPrice
	} else {
		c.log.Debug("eth_gasPrice failed", zap.Error(gasPriceErr))
	}

	baseFee, headErr := c.latestBaseFee(ctx)
	if headErr != nil {
		c.log.Debug("failed to get latest block", zap.Error(headErr))
	}

	if baseFee != nil {
		tip, err := c.ethClient.SuggestGasTipCap(ctx)
		if err != nil {
			c.log.Debug("eth_maxPriorityFeePerGas failed, using default", zap.Error(err))
			tip = big.NewInt(defaultPriorityFee)
		}
		fd.MaxPriorityFeePerGas = tip
		fd.MaxFeePerGas = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
	}

	if fd.GasPrice == nil && baseFee == nil && gasPriceErr != nil && headErr != nil {
		return nil, fmt.Errorf("failed to get fee data: %w", gasPriceErr)
	}
	return fd, nil
}

// latestBaseFee reads baseFeePerGas of the latest block (nil before London)
func (c *EthereumClient) latestBaseFee(ctx context.Context) (*big.Int, error) {
	var head *struct {
		BaseFee *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := c.rpcClient.CallContext(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	if head == nil || head.BaseFee == nil {
		return nil, nil
	}
	return head.BaseFee.ToInt(), nil
}

// SendTransaction broadcasts a signed transaction
func (c *EthereumClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.ethClient.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}
	return nil
}

// Close releases the underlying connection
func (c *EthereumClient) Close() error {
	c.rpcClient.Close()
	return nil
}
