// Package deploy publishes the forwarder that matches the connected network
// and records where it lives.
//
// The driver runs three states in order: ResolveTarget picks the contract
// for the signer's chain id, Deploy creates it (or checks a reused address)
// and Persist writes chain<id>.yaml. An unsupported chain id ends the run
// after ResolveTarget without touching the network or the filesystem.
package deploy

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/Mohsinsiddi/donation-forwarder/internal/chain"
	"github.com/Mohsinsiddi/donation-forwarder/internal/contract"
	"github.com/Mohsinsiddi/donation-forwarder/internal/sanity"
	"github.com/Mohsinsiddi/donation-forwarder/internal/txconfirm"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Contracts maps a chain id to the forwarder deployed there.
var Contracts = map[int64]contract.Name{
	1:   contract.EthereumForwarder,
	108: contract.ThunderCoreForwarder,
}

// ContractForChain looks up the forwarder for chainID.
func ContractForChain(chainID *big.Int) (contract.Name, bool) {
	if !chainID.IsInt64() {
		return "", false
	}
	name, ok := Contracts[chainID.Int64()]
	return name, ok
}

// Sender signs and broadcasts from the deployer account; *chain.Transactor
// implements it.
type Sender interface {
	ChainID(ctx context.Context) (*big.Int, error)
	Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (*chain.PendingTx, error)
}

// Driver deploys one forwarder.
type Driver struct {
	Network      sanity.Reader
	Sender       Sender
	ArtifactsDir string
	RecordDir    string
	Reuse        *common.Address // skip creation and record this address
	Out          io.Writer       // tx progress lines
	Err          io.Writer       // unsupported chain notice
	Log          *zap.Logger
}

// Result describes a finished deployment.
type Result struct {
	Contract contract.Name
	ChainID  *big.Int
	Record   *Record
	Path     string
	TxHash   common.Hash // zero for a reused deployment
}

type run struct {
	*Driver
	result Result
}

type stateFn func(ctx context.Context, r *run) (stateFn, error)

// Run executes the deployment. It returns a nil Result and no error when the
// chain id has no forwarder.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := &run{Driver: d}
	for state := resolveTarget; state != nil; {
		next, err := state(ctx, r)
		if err != nil {
			return nil, err
		}
		state = next
	}
	if r.result.Record == nil {
		return nil, nil
	}
	return &r.result, nil
}

func resolveTarget(ctx context.Context, r *run) (stateFn, error) {
	chainID, err := r.Sender.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading signer chain id: %w", err)
	}
	name, ok := ContractForChain(chainID)
	if !ok {
		fmt.Fprintf(r.Err, "unsupported chain id: %s\n", chainID)
		return nil, nil
	}
	r.result.ChainID = chainID
	r.result.Contract = name
	r.Log.Debug("deployment target", zap.Stringer("chainId", chainID), zap.String("contract", string(name)))
	if r.Reuse != nil {
		return reuse, nil
	}
	return deployContract, nil
}

func deployContract(ctx context.Context, r *run) (stateFn, error) {
	path := contract.ArtifactPath(r.ArtifactsDir, r.result.Contract)
	r.Log.Debug("loading artifact", zap.String("path", path))
	art, err := contract.LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	data, err := art.DeployData()
	if err != nil {
		return nil, err
	}

	receipt, err := txconfirm.Confirm(ctx, r.Out, func(ctx context.Context) (*chain.PendingTx, error) {
		return r.Sender.Send(ctx, nil, data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("deploying %s: %w", r.result.Contract, err)
	}
	r.result.TxHash = receipt.TxHash
	r.result.Record = &Record{Contract: ContractRecord{
		DeployedBlock:     receipt.BlockNumber,
		DeployedBlockHash: receipt.BlockHash.Hex(),
		ChainID:           r.result.ChainID.Int64(),
		Address:           receipt.ContractAddress.Hex(),
	}}
	return persist, nil
}

func reuse(ctx context.Context, r *run) (stateFn, error) {
	addr := *r.Reuse
	if err := sanity.Check(ctx, r.Network, addr); err != nil {
		return nil, err
	}
	r.Log.Debug("reusing deployed contract", zap.String("address", addr.Hex()))
	r.result.Record = &Record{Contract: ContractRecord{
		ChainID: r.result.ChainID.Int64(),
		Address: addr.Hex(),
	}}
	return persist, nil
}

func persist(_ context.Context, r *run) (stateFn, error) {
	path := RecordPath(r.RecordDir, r.result.ChainID)
	if err := WriteRecord(path, r.result.Record); err != nil {
		return nil, err
	}
	r.result.Path = path
	r.Log.Debug("deployment record written", zap.String("path", path))
	return nil, nil
}
