package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

const DefaultCardanoURL = "https://api.cardanoscan.io"

// CardanoFetcher walks cardanoscan blocks by hash and attributes them to the slot leader.
type CardanoFetcher struct {
	client  jsonClient
	baseURL string
	header  http.Header
}

func NewCardanoFetcher(opts Options) *CardanoFetcher {
	header := http.Header{}
	if key := opts.apiKey(); key != "" {
		header.Set("apiKey", key)
	}
	return &CardanoFetcher{
		client:  jsonClient{client: opts.httpClient()},
		baseURL: strings.TrimSuffix(valueOr(opts.BaseURL, DefaultCardanoURL), "/"),
		header:  header,
	}
}

type cardanoBlockResponse struct {
	Hash              string `json:"hash"`
	SlotLeader        string `json:"slotLeader"`
	PreviousBlockHash string `json:"previousBlockHash"`
	Timestamp         string `json:"timestamp"`
}

func (f *CardanoFetcher) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	var response cardanoBlockResponse
	endpoint := f.baseURL + "/api/v1/block?" + url.Values{"blockHash": {unit.Hash}}.Encode()
	err := f.client.getJSON(ctx, endpoint, f.header, &response)
	if err != nil {
		return nil, errors.Wrapf(err, "getting block [%s]", unit.Hash)
	}

	if response.SlotLeader == "" && response.PreviousBlockHash == "" {
		return nil, entities.Malformed(errors.Errorf("block [%s] without slot leader and previous block", unit.Hash))
	}
	var timestamp time.Time
	if response.Timestamp != "" {
		timestamp, err = time.Parse(time.RFC3339, response.Timestamp)
		if err != nil {
			return nil, entities.Malformed(errors.Wrapf(err, "block [%s] timestamp", unit.Hash))
		}
	}

	blocks := []entities.Block{{
		Producer:  response.SlotLeader,
		Blocks:    1,
		Timestamp: timestamp.UTC(),
		Parent:    response.PreviousBlockHash,
	}}
	if response.SlotLeader == "" {
		// the link is still returned so the walk can continue past this block
		return blocks, entities.Malformed(errors.Errorf("block [%s] without slot leader", unit.Hash))
	}
	return blocks, nil
}
