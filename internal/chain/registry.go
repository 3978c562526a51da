package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Chain holds the metadata the forwarder tools print about a network.
type Chain struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	ChainID        int64  `json:"chain_id"`
	NativeCurrency string `json:"native_currency"`
	Explorer       string `json:"explorer"`
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry returns the registry of networks the forwarders live on.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "thundercore").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// Label returns "DisplayName (chain id)" for known chains and "chain <id>"
// for anything else.
func (r *Registry) Label(id int64) string {
	if c, err := r.GetByChainID(id); err == nil {
		return fmt.Sprintf("%s (chain %d)", c.DisplayName, id)
	}
	return fmt.Sprintf("chain %d", id)
}

// TxURL returns the explorer link for a transaction hash.
func (c *Chain) TxURL(hash string) string {
	return c.Explorer + "/tx/" + hash
}

// AddressURL returns the explorer link for an address.
func (c *Chain) AddressURL(addr string) string {
	return c.Explorer + "/address/" + addr
}

// --- chain data ---

func allChains() []Chain {
	return []Chain{
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1,
			NativeCurrency: "ETH",
			Explorer:       "https://etherscan.io",
		},
		{
			Name: "thundercore", DisplayName: "ThunderCore", ChainID: 108,
			NativeCurrency: "TT",
			Explorer:       "https://viewblock.io/thundercore",
		},
	}
}
