package chain

import (
	"context"
	"fmt"
	"math/big"
)

// GasInfo holds the fee parameters for the next transaction.
type GasInfo struct {
	BaseFee  *big.Int // EIP-1559 base fee (Wei), nil on legacy chains
	TipCap   *big.Int // EIP-1559 only
	FeeCap   *big.Int // EIP-1559 only: 2*BaseFee + TipCap
	GasPrice *big.Int // legacy eth_gasPrice (Wei), nil on EIP-1559 chains
}

// IsEIP1559 reports whether the chain takes dynamic-fee transactions.
func (g *GasInfo) IsEIP1559() bool {
	return g.BaseFee != nil
}

// GetGasInfo reads the latest block's base fee. When present the fee cap
// leaves room for the base fee to double; otherwise the node's gas price is
// used.
func (c *EVMClient) GetGasInfo(ctx context.Context) (*GasInfo, error) {
	baseFee, err := c.BaseFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting base fee: %w", err)
	}
	if baseFee != nil {
		tip := new(big.Int).Set(DefaultPriorityFee)
		return &GasInfo{
			BaseFee: baseFee,
			TipCap:  tip,
			FeeCap:  new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip),
		}, nil
	}

	gp, err := c.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	return &GasInfo{GasPrice: gp}, nil
}

// WeiToGwei converts a Wei amount to Gwei.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetFloat64(1e9),
	).Float64()
	return f
}
