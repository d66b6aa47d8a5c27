package archiver

import (
	"context"
	"errors"
	"testing"
	"time"

	archiverproto "github.com/qubic/go-archiver-v2/protobuf"
	"github.com/qubic/go-producer-census/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FakeArchiveClient struct {
	archiverproto.ArchiveServiceClient
	ticks map[uint32]*archiverproto.TickData
	err   error
}

func (f *FakeArchiveClient) GetTickData(_ context.Context, in *archiverproto.GetTickDataRequest, _ ...grpc.CallOption) (*archiverproto.GetTickDataResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &archiverproto.GetTickDataResponse{TickData: f.ticks[in.TickNumber]}, nil
}

func TestClient_Fetch(t *testing.T) {
	client := &Client{api: &FakeArchiveClient{ticks: map[uint32]*archiverproto.TickData{
		22000000: {ComputorIndex: 451, TickNumber: 22000000, Epoch: 160, Timestamp: 1744610180000},
	}}}

	blocks, err := client.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 22000000})
	require.NoError(t, err)
	assert.Equal(t, []entities.Block{{Producer: "451", Blocks: 1, Timestamp: time.Date(2025, 4, 14, 5, 56, 20, 0, time.UTC)}}, blocks)

	// empty tick
	blocks, err = client.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 22000001})
	require.NoError(t, err)
	assert.Empty(t, blocks)

	_, err = client.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 1 << 33})
	require.Error(t, err)
	assert.False(t, entities.IsRetriable(err))
}

func TestClient_Fetch_ClassifiesErrors(t *testing.T) {
	testData := []struct {
		name      string
		err       error
		retriable bool
		malformed bool
	}{
		{name: "unavailable", err: status.Error(codes.Unavailable, "connection refused"), retriable: true},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "deadline exceeded"), retriable: true},
		{name: "exhausted", err: status.Error(codes.ResourceExhausted, "too many requests"), retriable: true},
		{name: "not found", err: status.Error(codes.NotFound, "tick not found")},
		{name: "internal", err: status.Error(codes.Internal, "corrupt tick"), malformed: true},
	}

	for _, data := range testData {
		t.Run(data.name, func(t *testing.T) {
			client := &Client{api: &FakeArchiveClient{err: data.err}}
			_, err := client.Fetch(context.Background(), entities.WorkUnit{Kind: entities.UnitHeight, Height: 1})
			require.Error(t, err)
			assert.Equal(t, data.retriable, entities.IsRetriable(err))
			assert.Equal(t, data.malformed, errors.Is(err, entities.ErrMalformedResponse))
		})
	}
}

func TestConvertTickData(t *testing.T) {
	assert.Nil(t, convertTickData(nil))

	blocks := convertTickData(&archiverproto.TickData{ComputorIndex: 0})
	require.Len(t, blocks, 1)
	assert.Equal(t, "0", blocks[0].Producer)
	assert.True(t, blocks[0].Timestamp.IsZero())
}
