package deploy_test

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/donation-forwarder/internal/chain"
	"github.com/Mohsinsiddi/donation-forwarder/internal/contract"
	"github.com/Mohsinsiddi/donation-forwarder/internal/deploy"
	"github.com/Mohsinsiddi/donation-forwarder/internal/sanity"
	"github.com/Mohsinsiddi/donation-forwarder/internal/wallet"
	"github.com/Mohsinsiddi/donation-forwarder/test/fixtures"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	node   *fixtures.Node
	driver *deploy.Driver
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T, chainID int64) *harness {
	t.Helper()
	node := fixtures.NewNode(t, chainID)
	client, err := chain.Dial(context.Background(), node.URL())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	h := &harness{node: node, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.driver = &deploy.Driver{
		Network:      client,
		Sender:       chain.NewTransactor(client, wallet.NewSigner(fixtures.TestKey)),
		ArtifactsDir: fixtures.ArtifactsDir(),
		RecordDir:    t.TempDir(),
		Out:          h.out,
		Err:          h.errOut,
		Log:          zaptest.NewLogger(t),
	}
	return h
}

func TestContractForChain(t *testing.T) {
	name, ok := deploy.ContractForChain(big.NewInt(1))
	assert.True(t, ok)
	assert.Equal(t, contract.EthereumForwarder, name)

	name, ok = deploy.ContractForChain(big.NewInt(108))
	assert.True(t, ok)
	assert.Equal(t, contract.ThunderCoreForwarder, name)

	_, ok = deploy.ContractForChain(big.NewInt(5))
	assert.False(t, ok)
	_, ok = deploy.ContractForChain(new(big.Int).Lsh(big.NewInt(1), 80))
	assert.False(t, ok)
}

func TestRunUnsupportedChainWritesNothing(t *testing.T) {
	h := newHarness(t, 31337)

	res, err := h.driver.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "unsupported chain id: 31337\n", h.errOut.String())
	assert.Empty(t, h.out.String())
	assert.Zero(t, h.node.Calls("eth_sendRawTransaction"))

	entries, err := os.ReadDir(h.driver.RecordDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunDeploysThunderCoreForwarder(t *testing.T) {
	h := newHarness(t, 108)

	res, err := h.driver.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, contract.ThunderCoreForwarder, res.Contract)
	assert.Equal(t, filepath.Join(h.driver.RecordDir, "chain108.yaml"), res.Path)

	sent := h.node.Sent()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Nil(t, tx.To())
	art, err := contract.LoadArtifact(contract.ArtifactPath(fixtures.ArtifactsDir(), contract.ThunderCoreForwarder))
	require.NoError(t, err)
	assert.Equal(t, art.Bytecode, tx.Data())
	assert.Equal(t, tx.Hash(), res.TxHash)

	wantAddr := crypto.CreateAddress(common.HexToAddress(fixtures.TestKeyAddr), 0)
	rec, err := deploy.ReadRecord(res.Path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), rec.Contract.DeployedBlock)
	assert.Equal(t, fixtures.BlockHash(42).Hex(), rec.Contract.DeployedBlockHash)
	assert.Equal(t, int64(108), rec.Contract.ChainID)
	assert.Equal(t, wantAddr.Hex(), rec.Contract.Address)

	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "tx submitted, txHash: "+tx.Hash().Hex(), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "tx mined in blockNumber: 42, status: 1, "))
}

func TestRunDeploysEthereumForwarderWithDynamicFee(t *testing.T) {
	h := newHarness(t, 1)
	h.node.SetBaseFee(big.NewInt(10_000_000_000))

	res, err := h.driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contract.EthereumForwarder, res.Contract)
	assert.FileExists(t, filepath.Join(h.driver.RecordDir, "chain1.yaml"))

	sent := h.node.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, big.NewInt(21_500_000_000), sent[0].GasFeeCap())
}

func TestRunDerivesAddressWhenReceiptOmitsIt(t *testing.T) {
	h := newHarness(t, 108)
	h.node.OmitContractAddress()

	res, err := h.driver.Run(context.Background())
	require.NoError(t, err)
	want := crypto.CreateAddress(common.HexToAddress(fixtures.TestKeyAddr), 0)
	assert.Equal(t, want.Hex(), res.Record.Contract.Address)
}

func TestRunRevertedDeploymentWritesNoRecord(t *testing.T) {
	h := newHarness(t, 108)
	h.node.Revert()

	_, err := h.driver.Run(context.Background())
	require.ErrorIs(t, err, chain.ErrTxReverted)
	assert.NoFileExists(t, filepath.Join(h.driver.RecordDir, "chain108.yaml"))
	assert.Contains(t, h.out.String(), "tx submitted")
	assert.NotContains(t, h.out.String(), "tx mined")
}

func TestRunMissingArtifact(t *testing.T) {
	h := newHarness(t, 108)
	h.driver.ArtifactsDir = t.TempDir()

	_, err := h.driver.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, h.node.Calls("eth_sendRawTransaction"))
}

func TestRunReuseWritesMarkerRecord(t *testing.T) {
	h := newHarness(t, 108)
	addr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	h.node.SetCode(addr, fixtures.DeployedCode)
	h.driver.Reuse = &addr

	res, err := h.driver.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, h.node.Calls("eth_sendRawTransaction"))
	assert.Empty(t, h.out.String())

	rec, err := deploy.ReadRecord(res.Path)
	require.NoError(t, err)
	assert.Equal(t, deploy.ContractRecord{
		DeployedBlock:     0,
		DeployedBlockHash: "",
		ChainID:           108,
		Address:           addr.Hex(),
	}, rec.Contract)
}

func TestRunReuseWithoutCode(t *testing.T) {
	h := newHarness(t, 108)
	addr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	h.driver.Reuse = &addr

	_, err := h.driver.Run(context.Background())
	var notFound *sanity.DeploymentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.NoFileExists(t, filepath.Join(h.driver.RecordDir, "chain108.yaml"))
}

func TestRunOverwritesExistingRecord(t *testing.T) {
	h := newHarness(t, 108)
	path := filepath.Join(h.driver.RecordDir, "chain108.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stale: true\n"), 0o644))

	_, err := h.driver.Run(context.Background())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}
