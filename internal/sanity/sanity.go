// Package sanity verifies that a contract is deployed on the connected
// network before any transaction is sent to it.
package sanity

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Reader is the subset of the network client the check needs.
type Reader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
}

// DeploymentNotFoundError reports an address with no code on the network.
type DeploymentNotFoundError struct {
	Address common.Address
	ChainID *big.Int
}

func (e *DeploymentNotFoundError) Error() string {
	return fmt.Sprintf("no code is deployed at contract address %s on chainId %s", e.Address.Hex(), e.ChainID)
}

// Check reads the chain id and the code at addr concurrently and fails with
// *DeploymentNotFoundError when the code is empty.
func Check(ctx context.Context, r Reader, addr common.Address) error {
	var (
		chainID *big.Int
		code    []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := r.ChainID(gctx)
		if err != nil {
			return fmt.Errorf("reading chain id: %w", err)
		}
		chainID = id
		return nil
	})
	g.Go(func() error {
		c, err := r.CodeAt(gctx, addr)
		if err != nil {
			return fmt.Errorf("reading code at %s: %w", addr.Hex(), err)
		}
		code = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if len(code) == 0 {
		return &DeploymentNotFoundError{Address: addr, ChainID: chainID}
	}
	return nil
}
