package provider

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

const DefaultAvalancheURL = "https://glacier-api.avax.network/v1/networks/mainnet/blockchains/c-chain"

// AvalancheFetcher reads c-chain blocks by height from the glacier api. Requests rotate over
// the configured api keys to spread the per key quota.
type AvalancheFetcher struct {
	client  jsonClient
	baseURL string
	keys    []string
	next    atomic.Uint64
}

func NewAvalancheFetcher(opts Options) *AvalancheFetcher {
	return &AvalancheFetcher{
		client:  jsonClient{client: opts.httpClient()},
		baseURL: strings.TrimSuffix(valueOr(opts.BaseURL, DefaultAvalancheURL), "/"),
		keys:    opts.APIKeys,
	}
}

type glacierBlockResponse struct {
	BlockNumber     string `json:"blockNumber"`
	BlockTimestamp  int64  `json:"blockTimestamp"`
	ParentHash      string `json:"parentHash"`
	ProposerDetails *struct {
		ProposerNodeID string `json:"proposerNodeId"`
	} `json:"proposerDetails"`
}

func (f *AvalancheFetcher) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	height := strconv.FormatUint(unit.Height, 10)

	var response glacierBlockResponse
	err := f.client.getJSON(ctx, f.baseURL+"/blocks/"+height, f.header(), &response)
	if err != nil {
		return nil, errors.Wrapf(err, "getting block [%s]", height)
	}

	if response.ProposerDetails == nil || response.ProposerDetails.ProposerNodeID == "" {
		return nil, entities.Malformed(errors.Errorf("block [%s] without proposer", height))
	}
	var timestamp time.Time
	if response.BlockTimestamp > 0 {
		timestamp = time.Unix(response.BlockTimestamp, 0).UTC()
	}
	return []entities.Block{{
		Producer:  response.ProposerDetails.ProposerNodeID,
		Blocks:    1,
		Timestamp: timestamp,
		Parent:    response.ParentHash,
	}}, nil
}

// header picks the next api key in round-robin order.
func (f *AvalancheFetcher) header() http.Header {
	header := http.Header{}
	if len(f.keys) > 0 {
		index := (f.next.Add(1) - 1) % uint64(len(f.keys))
		header.Set("x-glacier-api-key", f.keys[index])
	}
	return header
}
