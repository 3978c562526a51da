package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is how often WaitMined asks the node for a receipt.
	DefaultPollInterval = 2 * time.Second
	// DefaultReceiptTimeout bounds WaitMined.
	DefaultReceiptTimeout = 5 * time.Minute
)

var (
	// ErrTxReverted is returned when a mined transaction has status 0.
	ErrTxReverted = errors.New("transaction reverted")
	// ErrReceiptTimeout is returned when a transaction is not mined in time.
	ErrReceiptTimeout = errors.New("transaction not mined")
)

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	rpc          *rpc.Client
	pollInterval time.Duration
	timeout      time.Duration
	log          *zap.Logger
}

// Option configures an EVMClient.
type Option func(*EVMClient)

// WithPollInterval sets the receipt poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *EVMClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithReceiptTimeout sets how long WaitMined waits before giving up.
func WithReceiptTimeout(d time.Duration) Option {
	return func(c *EVMClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger attaches a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *EVMClient) {
		if l != nil {
			c.log = l
		}
	}
}

// Dial connects to the JSON-RPC endpoint at url.
func Dial(ctx context.Context, url string, opts ...Option) (*EVMClient, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c := &EVMClient{
		rpc:          rc,
		pollInterval: DefaultPollInterval,
		timeout:      DefaultReceiptTimeout,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Debug("rpc client ready", zap.String("url", url))
	return c, nil
}

// Close releases the underlying connection.
func (c *EVMClient) Close() {
	c.rpc.Close()
}

// ChainID returns the chain's ID as reported by eth_chainId.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := c.rpc.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	return (*big.Int)(&id), nil
}

// CodeAt returns the bytecode at addr. An empty slice means no contract
// (the node answered "0x").
func (c *EVMClient) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &code, "eth_getCode", addr, "latest"); err != nil {
		return nil, fmt.Errorf("eth_getCode %s: %w", addr.Hex(), err)
	}
	return code, nil
}

// PendingNonce returns the transaction count of addr including queued txs.
func (c *EVMClient) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	var n hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &n, "eth_getTransactionCount", addr, "pending"); err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount: %w", err)
	}
	return uint64(n), nil
}

// GasPrice returns the node's suggested legacy gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var gp hexutil.Big
	if err := c.rpc.CallContext(ctx, &gp, "eth_gasPrice"); err != nil {
		return nil, fmt.Errorf("eth_gasPrice: %w", err)
	}
	return (*big.Int)(&gp), nil
}

// BaseFee returns the base fee of the latest block, or nil on chains
// without EIP-1559.
func (c *EVMClient) BaseFee(ctx context.Context) (*big.Int, error) {
	var head *struct {
		BaseFee *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := c.rpc.CallContext(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber: %w", err)
	}
	if head == nil {
		return nil, errors.New("latest block not found")
	}
	if head.BaseFee == nil {
		return nil, nil
	}
	return (*big.Int)(head.BaseFee), nil
}

// EstimateGas asks the node how much gas msg needs.
func (c *EVMClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &gas, "eth_estimateGas", toCallArg(msg)); err != nil {
		return 0, fmt.Errorf("eth_estimateGas: %w", err)
	}
	return uint64(gas), nil
}

// SendTransaction broadcasts a signed transaction and returns its hash.
func (c *EVMClient) SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding transaction: %w", err)
	}
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendRawTransaction: %w", err)
	}
	return hash, nil
}

func toCallArg(msg ethereum.CallMsg) map[string]interface{} {
	arg := map[string]interface{}{
		"from": msg.From,
	}
	if msg.To != nil {
		arg["to"] = msg.To
	}
	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil && msg.Value.Sign() > 0 {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	return arg
}

// Receipt holds the on-chain receipt of a mined transaction.
type Receipt struct {
	TxHash          common.Hash
	Status          uint64 // 1 = success, 0 = reverted
	BlockNumber     uint64
	BlockHash       common.Hash
	GasUsed         uint64
	ContractAddress common.Address // zero unless the tx created a contract
}

type rpcReceipt struct {
	Status          hexutil.Uint64  `json:"status"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	BlockHash       common.Hash     `json:"blockHash"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	ContractAddress *common.Address `json:"contractAddress"`
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var r *rpcReceipt
	if err := c.rpc.CallContext(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt: %w", err)
	}
	if r == nil {
		return nil, nil // still pending
	}
	receipt := &Receipt{
		TxHash:      hash,
		Status:      uint64(r.Status),
		BlockNumber: uint64(r.BlockNumber),
		BlockHash:   r.BlockHash,
		GasUsed:     uint64(r.GasUsed),
	}
	if r.ContractAddress != nil {
		receipt.ContractAddress = *r.ContractAddress
	}
	return receipt, nil
}

// WaitMined polls until the transaction is mined, the client's receipt
// timeout expires or ctx is cancelled. A mined but reverted transaction
// returns its receipt together with ErrTxReverted.
func (c *EVMClient) WaitMined(ctx context.Context, hash common.Hash) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(waitCtx, hash)
		switch {
		case err != nil && waitCtx.Err() != nil && ctx.Err() == nil:
			return nil, fmt.Errorf("%w within %s (hash: %s)", ErrReceiptTimeout, c.timeout, hash.Hex())
		case err != nil:
			return nil, err
		case receipt != nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTxReverted, hash.Hex())
			}
			return receipt, nil
		}
		c.log.Debug("receipt not available yet", zap.String("hash", hash.Hex()))

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w within %s (hash: %s)", ErrReceiptTimeout, c.timeout, hash.Hex())
		case <-ticker.C:
		}
	}
}
