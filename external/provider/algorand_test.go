package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/qubic/go-producer-census/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorandFetcher_Fetch(t *testing.T) {
	from := time.Date(2025, 3, 25, 12, 0, 0, 0, time.UTC)
	till := time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)

	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "bq-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var request graphQLRequest
		require.NoError(t, json.Unmarshal(body, &request))
		assert.Contains(t, request.Query, "algorand")
		assert.Equal(t, "2025-03-25T12:00:00Z", request.Variables["from"])
		assert.Equal(t, "2025-03-27T00:00:00Z", request.Variables["till"])
		assert.Equal(t, float64(2), request.Variables["limit"])

		switch request.Variables["offset"] {
		case float64(0):
			writeJSON(t, w, http.StatusOK, `{"data":{"algorand":{"blocks":[
				{"address":{"address":"PROPOSER1"},"count":1000,"min_date":"2025-03-25","max_date":"2025-03-26"},
				{"address":{"address":"PROPOSER2"},"count":15,"min_date":"2025-03-25","max_date":"2025-03-25"}
			]}}}`)
		case float64(2):
			writeJSON(t, w, http.StatusOK, `{"errors":[{"message":"Limit for result exceeded"}]}`)
		default:
			writeJSON(t, w, http.StatusOK, `{"data":null}`)
		}
	})
	fetcher := NewAlgorandFetcher(Options{BaseURL: server.URL, APIKeys: []string{"bq-key"}, BearerToken: "token", HTTPClient: server.Client()})

	unit := entities.WorkUnit{Kind: entities.UnitPage, Count: 2, Offset: 0, From: from, Till: till}
	blocks, err := fetcher.Fetch(context.Background(), unit)
	require.NoError(t, err)
	expected := []entities.Block{
		{Producer: "PROPOSER1", Blocks: 1000, Timestamp: time.Date(2025, 3, 26, 0, 0, 0, 0, time.UTC)},
		{Producer: "PROPOSER2", Blocks: 15, Timestamp: from},
	}
	if diff := cmp.Diff(expected, blocks); diff != "" {
		t.Fatalf("Unexpected blocks: %v", diff)
	}

	unit.Offset = 2
	_, err = fetcher.Fetch(context.Background(), unit)
	require.ErrorContains(t, err, "Limit for result exceeded")

	unit.Offset = 4
	_, err = fetcher.Fetch(context.Background(), unit)
	assert.ErrorIs(t, err, entities.ErrMalformedResponse)
}

func TestRowTimestamp(t *testing.T) {
	from := time.Date(2025, 3, 25, 12, 0, 0, 0, time.UTC)
	till := time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)

	testData := []struct {
		name     string
		value    string
		expected time.Time
	}{
		{name: "empty", value: "", expected: time.Time{}},
		{name: "full timestamp", value: "2025-03-26T10:15:00Z", expected: time.Date(2025, 3, 26, 10, 15, 0, 0, time.UTC)},
		{name: "day inside window", value: "2025-03-26", expected: time.Date(2025, 3, 26, 0, 0, 0, 0, time.UTC)},
		{name: "day overlapping window start", value: "2025-03-25", expected: from},
		{name: "day before window", value: "2025-03-20", expected: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)},
	}

	for _, data := range testData {
		t.Run(data.name, func(t *testing.T) {
			got, err := rowTimestamp(data.value, from, till)
			require.NoError(t, err)
			assert.Equal(t, data.expected, got)
		})
	}

	_, err := rowTimestamp("26.03.2025", from, till)
	assert.Error(t, err)
}
