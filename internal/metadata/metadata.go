// Package metadata resolves staking program metadata from its on-chain
// content hash via an IPFS gateway or a local IPFS node.
package metadata

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	ipfsapi "github.com/ipfs/go-ipfs-api"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/pkg/types"
)

// DefaultGatewayURL is the Autonolas IPFS gateway. The %s placeholder
// receives the CIDv1 built from the on-chain hash.
const DefaultGatewayURL = "https://gateway.autonolas.tech/ipfs/%s"

// DefaultFetchTimeout bounds a single metadata fetch. Status queries
// hard-fail when the gateway does not answer in time.
const DefaultFetchTimeout = 30 * time.Second

// cidPrefix is the multibase/multicodec prefix for a base16 CIDv1 with
// dag-pb codec and sha2-256 digest, which is how StakingToken contracts
// store their metadata hash.
const cidPrefix = "f01701220"

// Fetcher resolves program metadata. With a node API URL configured it
// reads through the local IPFS daemon, otherwise it uses the HTTPS
// gateway.
type Fetcher struct {
	gatewayURL string
	httpClient *http.Client
	shell      *ipfsapi.Shell
	timeout    time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithGatewayURL overrides the default gateway URL template.
func WithGatewayURL(url string) Option {
	return func(f *Fetcher) { f.gatewayURL = url }
}

// WithNodeAPI routes fetches through a local IPFS node instead of the
// gateway.
func WithNodeAPI(apiURL string) Option {
	return func(f *Fetcher) { f.shell = ipfsapi.NewShell(apiURL) }
}

// WithTimeout overrides the fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// NewFetcher creates a metadata fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		gatewayURL: DefaultGatewayURL,
		timeout:    DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.httpClient = &http.Client{Timeout: f.timeout}
	return f
}

// CIDFromHash renders the on-chain metadata hash as a base16 CIDv1.
func CIDFromHash(hash [32]byte) string {
	return cidPrefix + hex.EncodeToString(hash[:])
}

// Fetch resolves and decodes the program metadata for a content hash.
func (f *Fetcher) Fetch(ctx context.Context, hash [32]byte) (types.ProgramMetadata, error) {
	cid := CIDFromHash(hash)

	var (
		body []byte
		err  error
	)
	if f.shell != nil {
		body, err = f.fetchFromNode(ctx, cid)
	} else {
		body, err = f.fetchFromGateway(ctx, cid)
	}
	if err != nil {
		return types.ProgramMetadata{}, err
	}

	var meta types.ProgramMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return types.ProgramMetadata{}, fmt.Errorf("failed to decode metadata for %s: %w", cid, err)
	}

	logging.Debug("fetched program metadata", "cid", cid, "name", meta.Name)
	return meta, nil
}

func (f *Fetcher) fetchFromGateway(ctx context.Context, cid string) ([]byte, error) {
	url := fmt.Sprintf(f.gatewayURL, cid)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch metadata from %s: status %d", url, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func (f *Fetcher) fetchFromNode(ctx context.Context, cid string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	reader, err := f.shell.Request("cat", cid).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata from IPFS node: %w", err)
	}
	defer reader.Close()
	if reader.Error != nil {
		return nil, fmt.Errorf("failed to fetch metadata from IPFS node: %w", reader.Error)
	}

	return io.ReadAll(io.LimitReader(reader.Output, 1<<20))
}
