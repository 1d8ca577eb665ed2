package external

import (
	"context"
	"errors"

	"github.com/flowscan/indexer/external/flow"
	"github.com/flowscan/indexer/logging"
	"github.com/flowscan/indexer/types"
)

// IClient is the chain access surface the syncer and backfill jobs rely on.
type IClient interface {
	GetLatestBlockHeight(ctx context.Context) (uint64, error)
	GetBlockAndCollections(ctx context.Context, height uint64) (*types.BlockResponse, []*types.CollectionResponse, error)
	GetTransaction(ctx context.Context, id string) (*types.TransactionResponse, error)
	GetTransactionResult(ctx context.Context, id string) (*types.TransactionResultResponse, error)
}

// Client fans out over a pool of access nodes, falling back to the next
// endpoint when one fails.
type Client struct {
	nodes []*flow.AccessClient
}

func NewClient(endpoints []string) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no access node endpoints configured")
	}
	nodes := make([]*flow.AccessClient, 0, len(endpoints))
	for _, endpoint := range endpoints {
		node, err := flow.NewAccessClient(endpoint)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return &Client{nodes: nodes}, nil
}

func (c *Client) GetLatestBlockHeight(ctx context.Context) (uint64, error) {
	var lastErr error
	for _, node := range c.nodes {
		height, err := node.GetLatestBlockHeight(ctx)
		if err == nil {
			return height, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// GetBlockAndCollections fetches the block at the given height together with
// the collections its guarantees reference. ErrBlockNotFound is returned
// untouched so the caller can distinguish "not yet sealed" from a real error.
func (c *Client) GetBlockAndCollections(ctx context.Context, height uint64) (*types.BlockResponse, []*types.CollectionResponse, error) {
	var lastErr error
	for _, node := range c.nodes {
		block, collections, err := fetchBlockAndCollections(ctx, node, height)
		if err == nil {
			return block, collections, nil
		}
		if errors.Is(err, flow.ErrBlockNotFound) {
			return nil, nil, err
		}
		logging.Logger.Errorf("failed to fetch block at height %d: %s, trying next endpoint", height, err.Error())
		lastErr = err
	}
	return nil, nil, lastErr
}

func fetchBlockAndCollections(ctx context.Context, node *flow.AccessClient, height uint64) (*types.BlockResponse, []*types.CollectionResponse, error) {
	block, err := node.GetBlockByHeight(ctx, height)
	if err != nil {
		return nil, nil, err
	}
	collections := make([]*types.CollectionResponse, 0, len(block.Payload.CollectionGuarantees))
	for _, guarantee := range block.Payload.CollectionGuarantees {
		collection, err := node.GetCollection(ctx, guarantee.CollectionID)
		if err != nil {
			return nil, nil, err
		}
		collections = append(collections, collection)
	}
	return block, collections, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (*types.TransactionResponse, error) {
	var lastErr error
	for _, node := range c.nodes {
		tx, err := node.GetTransaction(ctx, id)
		if err == nil {
			return tx, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) GetTransactionResult(ctx context.Context, id string) (*types.TransactionResultResponse, error) {
	var lastErr error
	for _, node := range c.nodes {
		result, err := node.GetTransactionResult(ctx, id)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
