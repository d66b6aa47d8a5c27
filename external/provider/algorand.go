package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

const DefaultAlgorandURL = "https://graphql.bitquery.io"

const algorandProposersQuery = `query ($limit: Int!, $offset: Int!, $from: ISO8601DateTime, $till: ISO8601DateTime) {
  algorand {
    blocks(
      options: {desc: "count", asc: "address.address", limit: $limit, offset: $offset}
      date: {since: $from, till: $till}
    ) {
      address: proposer {
        address
      }
      count
      min_date: minimum(of: date)
      max_date: maximum(of: date)
    }
  }
}`

// AlgorandFetcher pages through block counts per proposer, aggregated by bitquery over a date
// window. Every row carries the number of blocks of one proposer.
type AlgorandFetcher struct {
	client  jsonClient
	baseURL string
	header  http.Header
}

func NewAlgorandFetcher(opts Options) *AlgorandFetcher {
	header := http.Header{}
	if key := opts.apiKey(); key != "" {
		header.Set("X-API-KEY", key)
	}
	if opts.BearerToken != "" {
		header.Set("Authorization", "Bearer "+opts.BearerToken)
	}
	return &AlgorandFetcher{
		client:  jsonClient{client: opts.httpClient()},
		baseURL: strings.TrimSuffix(valueOr(opts.BaseURL, DefaultAlgorandURL), "/"),
		header:  header,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type algorandBlocksResponse struct {
	Data *struct {
		Algorand struct {
			Blocks []algorandProposerRow `json:"blocks"`
		} `json:"algorand"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type algorandProposerRow struct {
	Address struct {
		Address string `json:"address"`
	} `json:"address"`
	Count   uint64 `json:"count"`
	MinDate string `json:"min_date"`
	MaxDate string `json:"max_date"`
}

func (f *AlgorandFetcher) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	request := graphQLRequest{
		Query: algorandProposersQuery,
		Variables: map[string]any{
			"limit":      unit.Count,
			"offset":     unit.Offset,
			"network":    "algorand",
			"from":       unit.From.UTC().Format(time.RFC3339),
			"till":       unit.Till.UTC().Format(time.RFC3339),
			"dateFormat": "%Y-%m-%d",
		},
	}

	var response algorandBlocksResponse
	err := f.client.postJSON(ctx, f.baseURL, f.header, request, &response)
	if err != nil {
		return nil, errors.Wrapf(err, "querying proposers, %s", unit.String())
	}
	if len(response.Errors) > 0 {
		return nil, errors.Errorf("graphql error, %s: %s", unit.String(), response.Errors[0].Message)
	}
	if response.Data == nil {
		return nil, entities.Malformed(errors.Errorf("graphql response without data, %s", unit.String()))
	}

	rows := response.Data.Algorand.Blocks
	blocks := make([]entities.Block, 0, len(rows))
	for _, row := range rows {
		if row.Address.Address == "" {
			return nil, entities.Malformed(errors.Errorf("row without proposer address, %s", unit.String()))
		}
		timestamp, err := rowTimestamp(row.MaxDate, unit.From, unit.Till)
		if err != nil {
			return nil, entities.Malformed(errors.Wrapf(err, "row of [%s]", row.Address.Address))
		}
		blocks = append(blocks, entities.Block{Producer: row.Address.Address, Blocks: row.Count, Timestamp: timestamp})
	}
	return blocks, nil
}

// rowTimestamp parses the latest block date of a row. Day granular dates that overlap the window
// are moved into it, a day only tells that some block of that day was proposed.
func rowTimestamp(value string, from, till time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing date [%s]", value)
	}
	dayEnd := day.Add(24 * time.Hour)
	if dayEnd.After(from) && !day.After(till) && day.Before(from) {
		return from, nil
	}
	return day, nil
}
