// Package fixtures provides a scripted JSON-RPC node and compiled forwarder
// artifacts for tests that drive the commands end to end.
package fixtures

import (
	"path/filepath"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
)

// Hardhat's first development account.
const (
	TestKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	TestKeyAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// DeployedCode is the runtime code the node stores for created contracts.
var DeployedCode = common.FromHex("0x6080604052")

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// ArtifactsDir returns a Hardhat project root holding both forwarder artifacts.
func ArtifactsDir() string {
	return filepath.Join(fixturesDir(), "artifacts")
}
