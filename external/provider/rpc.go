package provider

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// JSON-RPC error codes that signal an overloaded or rate limited node.
var transientRPCCodes = map[int]bool{
	-32005: true, // limit exceeded
	-32603: true, // internal error
	-32004: true, // block not available (solana)
	-32016: true, // over rate limit (solana)
}

func dialRPC(ctx context.Context, url string, opts Options) (*rpc.Client, error) {
	clientOptions := []rpc.ClientOption{rpc.WithHTTPClient(opts.httpClient())}
	if opts.BearerToken != "" {
		clientOptions = append(clientOptions, rpc.WithHeader("Authorization", "Bearer "+opts.BearerToken))
	}
	client, err := rpc.DialOptions(ctx, url, clientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "dialing rpc endpoint")
	}
	return client, nil
}

func classifyRPCError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return statusError(httpErr.StatusCode, httpErr.Body)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if transientRPCCodes[rpcErr.ErrorCode()] {
			return entities.Transient(err)
		}
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, rpc.ErrNoResult) {
		return entities.Malformed(err)
	}
	// connection level failure
	return entities.Transient(err)
}

func rpcURL(base, key string) string {
	if key == "" {
		return base
	}
	return base + "/" + key
}
