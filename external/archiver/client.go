package archiver

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
	archiverproto "github.com/qubic/go-archiver-v2/protobuf"
	"github.com/qubic/go-producer-census/entities"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Client reads qubic ticks from the archiver. The computor that proposed the tick is its producer.
type Client struct {
	api  archiverproto.ArchiveServiceClient
	conn *grpc.ClientConn
}

func NewClient(host string) (*Client, error) {
	archiverConn, err := grpc.NewClient(host, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrap(err, "creating archiver connection")
	}
	return &Client{api: archiverproto.NewArchiveServiceClient(archiverConn), conn: archiverConn}, nil
}

func (c *Client) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	if unit.Height > math.MaxUint32 {
		return nil, errors.Errorf("tick [%d] out of range", unit.Height)
	}
	tick := uint32(unit.Height)

	response, err := c.api.GetTickData(ctx, &archiverproto.GetTickDataRequest{TickNumber: tick})
	if err != nil {
		return nil, errors.Wrapf(classify(ctx, err), "getting tick data [%d]", tick)
	}
	if response == nil {
		return nil, entities.Malformed(errors.Errorf("nil tick data response for tick [%d]", tick))
	}
	return convertTickData(response.GetTickData()), nil
}

// Head returns the last tick processed by the archiver.
func (c *Client) Head(ctx context.Context) (uint64, error) {
	response, err := c.api.GetStatus(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(classify(ctx, err), "getting archiver status")
	}
	tick := response.GetLastProcessedTick().GetTickNumber()
	if tick == 0 {
		return 0, entities.Malformed(errors.New("archiver status without last processed tick"))
	}
	return uint64(tick), nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// convertTickData maps a tick to its proposer. Empty ticks have no tick data and produce no block.
func convertTickData(td *archiverproto.TickData) []entities.Block {
	if td == nil {
		return nil
	}
	var timestamp time.Time
	if td.GetTimestamp() > 0 {
		timestamp = time.UnixMilli(int64(td.GetTimestamp())).UTC()
	}
	return []entities.Block{{
		Producer:  strconv.FormatUint(uint64(td.GetComputorIndex()), 10),
		Blocks:    1,
		Timestamp: timestamp,
	}}
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return entities.Transient(err)
	case codes.Internal, codes.DataLoss:
		return entities.Malformed(err)
	default:
		return err
	}
}
