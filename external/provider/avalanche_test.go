package provider

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/qubic/go-producer-census/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvalancheFetcher_Fetch(t *testing.T) {
	var locker sync.Mutex
	var usedKeys []string
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		locker.Lock()
		usedKeys = append(usedKeys, r.Header.Get("x-glacier-api-key"))
		locker.Unlock()

		switch r.URL.Path {
		case "/blocks/59599310":
			writeJSON(t, w, http.StatusOK, `{"blockNumber":"59599310","blockTimestamp":1743584400,"parentHash":"0xparent","proposerDetails":{"proposerNodeId":"NodeID-7Xhw2mDxuDS44j42TCB6U5579esbSt3Lg"}}`)
		case "/blocks/59599309":
			writeJSON(t, w, http.StatusOK, `{"blockNumber":"59599309","blockTimestamp":1743584398,"parentHash":"0xparent2"}`)
		default:
			writeJSON(t, w, http.StatusBadGateway, `{}`)
		}
	})
	fetcher := NewAvalancheFetcher(Options{BaseURL: server.URL, APIKeys: []string{"k1", "k2", "k3"}, HTTPClient: server.Client()})

	blocks, err := fetcher.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 59599310})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "NodeID-7Xhw2mDxuDS44j42TCB6U5579esbSt3Lg", blocks[0].Producer)
	assert.Equal(t, int64(1743584400), blocks[0].Timestamp.Unix())

	_, err = fetcher.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 59599309})
	assert.ErrorIs(t, err, entities.ErrMalformedResponse)

	_, err = fetcher.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 1})
	assert.True(t, entities.IsRetriable(err))

	_, _ = fetcher.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 59599310})

	assert.Equal(t, []string{"k1", "k2", "k3", "k1"}, usedKeys)
}
