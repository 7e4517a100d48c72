package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/predeploy-dump/internal/storage"
)

const defaultHTTPTimeout = 30 * time.Second

// Remote fetches <baseURL>/<Name>.json on every lookup. Wrap it with Retrying.
type Remote struct {
	baseURL *url.URL
	client  *http.Client
}

// NewRemote creates a source serving artifacts over HTTP(S)
func NewRemote(baseURL string, client *http.Client) (*Remote, error) {
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid artifacts URL '%s': %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid artifacts URL '%s': scheme must be http or https", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Remote{baseURL: parsed, client: client}, nil
}

func (r *Remote) Bytecode(ctx context.Context, contract string) ([]byte, error) {
	artifact, err := r.fetch(ctx, contract)
	if err != nil {
		return nil, err
	}

	return common.CopyBytes(artifact.DeployedBytecode), nil
}

func (r *Remote) StorageLayout(ctx context.Context, contract string) (*storage.Layout, error) {
	artifact, err := r.fetch(ctx, contract)
	if err != nil {
		return nil, err
	}
	if artifact.StorageLayout == nil {
		return nil, fmt.Errorf("%w: %s has no recorded storage layout", ErrNotFound, contract)
	}

	return artifact.StorageLayout, nil
}

func (r *Remote) fetch(ctx context.Context, contract string) (*Artifact, error) {
	target := r.baseURL.JoinPath(url.PathEscape(contract) + ".json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", contract, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contract)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch artifact %s: unexpected status %d", contract, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", contract, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(body, &artifact); err != nil {
		return nil, errors.Join(ErrMalformed, fmt.Errorf("artifact %s: %w", contract, err))
	}

	return &artifact, nil
}
