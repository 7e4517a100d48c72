package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/compose-network/predeploy-dump/internal/storage"
)

const bundleFileName = "contracts.json"

var ErrNotFound = errors.New("artifact not found")

type (
	// Artifact is the compiled form of a contract needed to place it at genesis.
	Artifact struct {
		DeployedBytecode hexutil.Bytes
		StorageLayout    *storage.Layout
	}

	// rawArtifact accepts both the Hardhat shape ("deployedBytecode": "0x..") and the
	// forge shape ("deployedBytecode": {"object": "0x.."}).
	rawArtifact struct {
		DeployedBytecode json.RawMessage `json:"deployedBytecode"`
		StorageLayout    *storage.Layout `json:"storageLayout,omitempty"`
	}
)

func (a *Artifact) UnmarshalJSON(data []byte) error {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	code, err := decodeBytecode(raw.DeployedBytecode)
	if err != nil {
		return err
	}

	a.DeployedBytecode = code
	a.StorageLayout = raw.StorageLayout

	return nil
}

func (a Artifact) MarshalJSON() ([]byte, error) {
	code, err := json.Marshal(a.DeployedBytecode)
	if err != nil {
		return nil, err
	}

	return json.Marshal(rawArtifact{
		DeployedBytecode: code,
		StorageLayout:    a.StorageLayout,
	})
}

func decodeBytecode(raw json.RawMessage) (hexutil.Bytes, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var object struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &object); err != nil {
			return nil, fmt.Errorf("failed to parse deployedBytecode: %w", err)
		}
		text = object.Object
	}

	text = strings.TrimSpace(text)
	if text == "" || text == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(text, "0x") {
		text = "0x" + text
	}

	code, err := hexutil.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("failed to decode deployedBytecode: %w", err)
	}

	return code, nil
}
