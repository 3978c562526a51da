package contract

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrNoBytecode is returned by DeployData when the artifact has no creation code.
var ErrNoBytecode = errors.New("artifact has no bytecode")

// Artifact holds a compiled contract: its ABI and, optionally, the
// deployment bytecode.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte // raw deployment bytecode (no 0x prefix)
}

// ArtifactPath returns the Hardhat layout path of a contract's artifact:
// <dir>/contracts/<Name>.sol/<Name>.json.
func ArtifactPath(dir string, name Name) string {
	n := string(name)
	return filepath.Join(dir, "contracts", n+".sol", n+".json")
}

// LoadArtifact loads a Hardhat or Foundry artifact JSON file. The ABI is
// required; the bytecode may be missing or empty (interfaces, or artifacts
// only used for calls).
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("artifact file is empty: %s", path)
	}

	var raw struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     json.RawMessage `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid artifact JSON %s: %w", path, err)
	}

	abiJSON := bytes.TrimSpace(raw.ABI)
	if len(abiJSON) < 2 || abiJSON[0] != '[' {
		return nil, fmt.Errorf("artifact has no valid \"abi\" array: %s", path)
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing artifact ABI %s: %w", path, err)
	}

	art := &Artifact{ContractName: raw.ContractName, ABI: parsed}
	if len(raw.Bytecode) == 0 || string(raw.Bytecode) == "null" {
		return art, nil
	}

	bcHex, err := extractBytecodeHex(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("extracting bytecode from artifact: %w", err)
	}
	bcHex = strings.TrimPrefix(bcHex, "0x")
	if bcHex == "" {
		return art, nil
	}
	art.Bytecode, err = hex.DecodeString(bcHex)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode hex in artifact: %w", err)
	}
	return art, nil
}

// DeployData returns the contract-creation payload. Forwarder constructors
// take no arguments.
func (a *Artifact) DeployData() ([]byte, error) {
	if len(a.Bytecode) == 0 {
		return nil, fmt.Errorf("%w: cannot deploy %s", ErrNoBytecode, a.ContractName)
	}
	if n := len(a.ABI.Constructor.Inputs); n > 0 {
		return nil, fmt.Errorf("constructor of %s takes %d argument(s), none supported", a.ContractName, n)
	}
	data := make([]byte, len(a.Bytecode))
	copy(data, a.Bytecode)
	return data, nil
}

// extractBytecodeHex handles the two common artifact formats:
//   - Hardhat:  "bytecode": "0x608060..."          (JSON string)
//   - Foundry:  "bytecode": {"object": "0x608060..."} (JSON object)
func extractBytecodeHex(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str), nil
	}

	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Object), nil
	}

	return "", fmt.Errorf("bytecode field is neither a hex string nor a {\"object\":\"0x...\"} object")
}
