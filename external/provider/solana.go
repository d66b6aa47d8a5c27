package provider

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

const DefaultSolanaURL = "https://api.mainnet-beta.solana.com"

// SolanaFetcher resolves the leader schedule of slot ranges.
type SolanaFetcher struct {
	client *rpc.Client
}

func NewSolanaFetcher(ctx context.Context, opts Options) (*SolanaFetcher, error) {
	client, err := dialRPC(ctx, rpcURL(strings.TrimSuffix(valueOr(opts.BaseURL, DefaultSolanaURL), "/"), opts.apiKey()), opts)
	if err != nil {
		return nil, errors.Wrap(err, "creating solana client")
	}
	return &SolanaFetcher{client: client}, nil
}

func (f *SolanaFetcher) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	var leaders []string
	err := f.client.CallContext(ctx, &leaders, "getSlotLeaders", unit.Height, unit.Count)
	if err != nil {
		return nil, errors.Wrapf(classifyRPCError(ctx, err), "getting leaders of %s", unit.String())
	}
	if len(leaders) == 0 {
		return nil, entities.Malformed(errors.Errorf("no leaders for %s", unit.String()))
	}

	blocks := make([]entities.Block, 0, len(leaders))
	for _, leader := range leaders {
		if leader == "" {
			return nil, entities.Malformed(errors.Errorf("empty leader in %s", unit.String()))
		}
		blocks = append(blocks, entities.Block{Producer: leader, Blocks: 1})
	}
	return blocks, nil
}

type voteAccounts struct {
	Current []struct {
		NodePubkey string `json:"nodePubkey"`
	} `json:"current"`
}

// ActiveValidators returns the node identities of the current, not delinquent, vote accounts.
func (f *SolanaFetcher) ActiveValidators(ctx context.Context) ([]string, error) {
	var accounts voteAccounts
	err := f.client.CallContext(ctx, &accounts, "getVoteAccounts", map[string]any{
		"commitment":              "finalized",
		"keepUnstakedDelinquents": false,
	})
	if err != nil {
		return nil, errors.Wrap(classifyRPCError(ctx, err), "getting vote accounts")
	}

	seen := make(map[string]bool, len(accounts.Current))
	validators := make([]string, 0, len(accounts.Current))
	for _, account := range accounts.Current {
		if account.NodePubkey == "" || seen[account.NodePubkey] {
			continue
		}
		seen[account.NodePubkey] = true
		validators = append(validators, account.NodePubkey)
	}
	return validators, nil
}

// Head returns the latest finalized slot.
func (f *SolanaFetcher) Head(ctx context.Context) (uint64, error) {
	var slot uint64
	err := f.client.CallContext(ctx, &slot, "getSlot", map[string]any{"commitment": "finalized"})
	if err != nil {
		return 0, errors.Wrap(classifyRPCError(ctx, err), "getting slot")
	}
	return slot, nil
}

func (f *SolanaFetcher) Close() error {
	f.client.Close()
	return nil
}
