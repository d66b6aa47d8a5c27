package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

const DefaultEthereumURL = "https://eth2-beacon-mainnet.nodereal.io/v1"

// EthereumFetcher reads beacon blocks by block root and attributes them to the proposer index.
type EthereumFetcher struct {
	client  jsonClient
	baseURL string
	apiKey  string
}

func NewEthereumFetcher(opts Options) *EthereumFetcher {
	return &EthereumFetcher{
		client:  jsonClient{client: opts.httpClient()},
		baseURL: strings.TrimSuffix(valueOr(opts.BaseURL, DefaultEthereumURL), "/"),
		apiKey:  opts.apiKey(),
	}
}

type beaconBlockResponse struct {
	Data struct {
		Message struct {
			Slot          string `json:"slot"`
			ProposerIndex string `json:"proposer_index"`
			ParentRoot    string `json:"parent_root"`
			Body          struct {
				ExecutionPayload struct {
					Timestamp string `json:"timestamp"`
				} `json:"execution_payload"`
			} `json:"body"`
		} `json:"message"`
	} `json:"data"`
}

func (f *EthereumFetcher) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	var response beaconBlockResponse
	err := f.client.getJSON(ctx, f.blockURL(unit.Hash), nil, &response)
	if err != nil {
		return nil, errors.Wrapf(err, "getting beacon block [%s]", unit.Hash)
	}

	message := response.Data.Message
	if message.ProposerIndex == "" && message.ParentRoot == "" {
		return nil, entities.Malformed(errors.Errorf("beacon block [%s] without proposer index and parent", unit.Hash))
	}
	timestamp, err := unixSeconds(message.Body.ExecutionPayload.Timestamp)
	if err != nil {
		return nil, entities.Malformed(errors.Wrapf(err, "beacon block [%s] timestamp", unit.Hash))
	}

	blocks := []entities.Block{{
		Producer:  message.ProposerIndex,
		Blocks:    1,
		Timestamp: timestamp,
		Parent:    parentOrGenesis(message.ParentRoot),
	}}
	if message.ProposerIndex == "" {
		return blocks, entities.Malformed(errors.Errorf("beacon block [%s] without proposer index", unit.Hash))
	}
	return blocks, nil
}

func (f *EthereumFetcher) blockURL(id string) string {
	if f.apiKey == "" {
		return f.baseURL + "/eth/v2/beacon/blocks/" + url.PathEscape(id)
	}
	return f.baseURL + "/" + url.PathEscape(f.apiKey) + "/eth/v2/beacon/blocks/" + url.PathEscape(id)
}

// unixSeconds parses a decimal unix timestamp. An empty value yields the zero time.
func unixSeconds(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing [%s]", value)
	}
	return time.Unix(seconds, 0).UTC(), nil
}

// parentOrGenesis maps the all zero root of the genesis block to an empty parent.
func parentOrGenesis(root string) string {
	if strings.Trim(strings.TrimPrefix(root, "0x"), "0") == "" {
		return ""
	}
	return root
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
