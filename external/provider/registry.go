package provider

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/domain"
	"github.com/qubic/go-producer-census/entities"
)

const (
	Ethereum  = "ethereum"
	Cardano   = "cardano"
	Avalanche = "avalanche"
	Polygon   = "polygon"
	Solana    = "solana"
	Algorand  = "algorand"
	// Qubic is served by the archiver client.
	Qubic = "qubic"
)

type Fetcher interface {
	Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error)
}

// HeadResolver is implemented by fetchers that can tell the latest height or slot, used when no
// upper bound is configured.
type HeadResolver interface {
	Head(ctx context.Context) (uint64, error)
}

// Ledger describes how a ledger is traversed.
type Ledger struct {
	Name    string
	Cursor  entities.CursorKind
	BaseURL string
	Buckets []string
}

var ledgers = map[string]Ledger{
	Ethereum:  {Name: Ethereum, Cursor: entities.CursorHashChain, BaseURL: DefaultEthereumURL, Buckets: domain.DefaultBuckets},
	Cardano:   {Name: Cardano, Cursor: entities.CursorHashChain, BaseURL: DefaultCardanoURL, Buckets: domain.DefaultBuckets},
	Avalanche: {Name: Avalanche, Cursor: entities.CursorHeight, BaseURL: DefaultAvalancheURL, Buckets: domain.DefaultBuckets},
	Polygon:   {Name: Polygon, Cursor: entities.CursorHeight, BaseURL: DefaultPolygonURL, Buckets: domain.WideBuckets},
	Solana:    {Name: Solana, Cursor: entities.CursorSlotBatch, BaseURL: DefaultSolanaURL, Buckets: domain.DefaultBuckets},
	Algorand:  {Name: Algorand, Cursor: entities.CursorDate, BaseURL: DefaultAlgorandURL, Buckets: domain.DefaultBuckets},
	Qubic:     {Name: Qubic, Cursor: entities.CursorHeight, Buckets: domain.DefaultBuckets},
}

func LookupLedger(name string) (Ledger, error) {
	ledger, ok := ledgers[name]
	if !ok {
		return Ledger{}, errors.Wrapf(entities.ErrConfiguration, "unknown ledger [%s], supported: %v", name, LedgerNames())
	}
	return ledger, nil
}

func LedgerNames() []string {
	names := make([]string, 0, len(ledgers))
	for name := range ledgers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates the http or json-rpc fetcher of a ledger.
func New(ctx context.Context, ledger string, opts Options) (Fetcher, error) {
	switch ledger {
	case Ethereum:
		return NewEthereumFetcher(opts), nil
	case Cardano:
		return NewCardanoFetcher(opts), nil
	case Avalanche:
		return NewAvalancheFetcher(opts), nil
	case Polygon:
		fetcher, err := NewPolygonFetcher(ctx, opts)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case Solana:
		fetcher, err := NewSolanaFetcher(ctx, opts)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case Algorand:
		return NewAlgorandFetcher(opts), nil
	default:
		return nil, errors.Wrapf(entities.ErrConfiguration, "no provider client for ledger [%s]", ledger)
	}
}
