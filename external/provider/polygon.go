package provider

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

const DefaultPolygonURL = "https://polygon-rpc.com"

// PolygonFetcher asks a bor node for the author of each block height.
type PolygonFetcher struct {
	client *rpc.Client
}

func NewPolygonFetcher(ctx context.Context, opts Options) (*PolygonFetcher, error) {
	client, err := dialRPC(ctx, rpcURL(strings.TrimSuffix(valueOr(opts.BaseURL, DefaultPolygonURL), "/"), opts.apiKey()), opts)
	if err != nil {
		return nil, errors.Wrap(err, "creating polygon client")
	}
	return &PolygonFetcher{client: client}, nil
}

func (f *PolygonFetcher) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	var author *common.Address
	err := f.client.CallContext(ctx, &author, "bor_getAuthor", hexutil.EncodeUint64(unit.Height))
	if err != nil {
		return nil, errors.Wrapf(classifyRPCError(ctx, err), "getting author of block [%d]", unit.Height)
	}
	if author == nil || *author == (common.Address{}) {
		return nil, entities.Malformed(errors.Errorf("block [%d] without author", unit.Height))
	}
	return []entities.Block{{Producer: author.Hex(), Blocks: 1}}, nil
}

// Head returns the latest block number.
func (f *PolygonFetcher) Head(ctx context.Context) (uint64, error) {
	var head hexutil.Uint64
	err := f.client.CallContext(ctx, &head, "eth_blockNumber")
	if err != nil {
		return 0, errors.Wrap(classifyRPCError(ctx, err), "getting block number")
	}
	return uint64(head), nil
}

func (f *PolygonFetcher) Close() error {
	f.client.Close()
	return nil
}
