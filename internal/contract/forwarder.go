package contract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/donation-forwarder/internal/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Name identifies a forwarder contract by its Solidity name.
type Name string

// The two forwarder variants.
const (
	EthereumForwarder    Name = "DonationForwarderOnEthereum"
	ThunderCoreForwarder Name = "DonationForwarderOnThunderCore"
)

// ErrUnknownContractName is returned for a name outside the forwarder variants.
var ErrUnknownContractName = errors.New("unknown contract")

// ErrWrongVariant is returned when a forwarder is used as the other variant.
var ErrWrongVariant = errors.New("wrong forwarder variant")

// ParseName validates s as a forwarder contract name.
func ParseName(s string) (Name, error) {
	switch n := Name(s); n {
	case EthereumForwarder, ThunderCoreForwarder:
		return n, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContractName, s)
}

// Method describes a contract method by name and parameter types.
type Method struct {
	Name   string
	Inputs []string
}

// Signature returns the canonical signature, e.g. "f(address,uint256)".
func (m Method) Signature() string {
	return m.Name + "(" + strings.Join(m.Inputs, ",") + ")"
}

// Selector computes the 4-byte function selector.
func (m Method) Selector() []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(m.Signature()))
	return h.Sum(nil)[:4]
}

var (
	transferToEthereumBridge      = Method{Name: "transferToEthereumBridge"}
	transferToUkraineDonations    = Method{Name: "transferToUkraineDonations", Inputs: []string{"address", "uint256"}}
	transferEthToUkraineDonations = Method{Name: "transferEthToUkraineDonations"}
)

// Methods lists the methods a variant must expose. No method has a return value.
func (n Name) Methods() []Method {
	switch n {
	case EthereumForwarder:
		return []Method{transferToUkraineDonations, transferEthToUkraineDonations}
	case ThunderCoreForwarder:
		return []Method{transferToEthereumBridge}
	}
	return nil
}

// Sender submits a transaction; *chain.Transactor implements it.
type Sender interface {
	Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (*chain.PendingTx, error)
}

// Forwarder is a bound forwarder contract, either *OnEthereum or *OnThunderCore.
type Forwarder interface {
	Name() Name
	Address() common.Address
}

type bound struct {
	name   Name
	addr   common.Address
	abi    abi.ABI
	sender Sender
}

func (b *bound) Name() Name              { return b.name }
func (b *bound) Address() common.Address { return b.addr }

func (b *bound) transact(ctx context.Context, m Method, args ...interface{}) (*chain.PendingTx, error) {
	data, err := b.abi.Pack(m.Name, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", m.Signature(), err)
	}
	return b.sender.Send(ctx, &b.addr, data, nil)
}

// OnEthereum is the forwarder deployed on Ethereum.
type OnEthereum struct{ bound }

// TransferToUkraineDonations forwards amount of the ERC-20 token to the
// donation address.
func (f *OnEthereum) TransferToUkraineDonations(ctx context.Context, token common.Address, amount *big.Int) (*chain.PendingTx, error) {
	return f.transact(ctx, transferToUkraineDonations, token, amount)
}

// TransferEthToUkraineDonations forwards the contract's ETH balance.
func (f *OnEthereum) TransferEthToUkraineDonations(ctx context.Context) (*chain.PendingTx, error) {
	return f.transact(ctx, transferEthToUkraineDonations)
}

// OnThunderCore is the forwarder deployed on ThunderCore.
type OnThunderCore struct{ bound }

// TransferToEthereumBridge moves the collected funds to the Ethereum bridge.
func (f *OnThunderCore) TransferToEthereumBridge(ctx context.Context) (*chain.PendingTx, error) {
	return f.transact(ctx, transferToEthereumBridge)
}

// Bind returns the forwarder variant named by name at addr, checking that
// the artifact ABI exposes every method the variant needs.
func Bind(name Name, art *Artifact, addr common.Address, sender Sender) (Forwarder, error) {
	if _, err := ParseName(string(name)); err != nil {
		return nil, err
	}
	if err := checkMethods(name, art.ABI); err != nil {
		return nil, err
	}
	b := bound{name: name, addr: addr, abi: art.ABI, sender: sender}
	switch name {
	case EthereumForwarder:
		return &OnEthereum{b}, nil
	case ThunderCoreForwarder:
		return &OnThunderCore{b}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownContractName, name)
}

// AsEthereum returns f as the Ethereum variant.
func AsEthereum(f Forwarder) (*OnEthereum, error) {
	if e, ok := f.(*OnEthereum); ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s is not %s", ErrWrongVariant, f.Name(), EthereumForwarder)
}

// AsThunderCore returns f as the ThunderCore variant.
func AsThunderCore(f Forwarder) (*OnThunderCore, error) {
	if tc, ok := f.(*OnThunderCore); ok {
		return tc, nil
	}
	return nil, fmt.Errorf("%w: %s is not %s", ErrWrongVariant, f.Name(), ThunderCoreForwarder)
}

func checkMethods(name Name, a abi.ABI) error {
	for _, m := range name.Methods() {
		got, ok := a.Methods[m.Name]
		if !ok {
			return fmt.Errorf("artifact for %s has no method %s", name, m.Signature())
		}
		if !bytes.Equal(got.ID, m.Selector()) {
			return fmt.Errorf("artifact for %s declares %s, want %s", name, got.Sig, m.Signature())
		}
	}
	return nil
}
