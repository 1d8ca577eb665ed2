package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/flowscan/indexer/types"
)

var (
	ErrBlockNotFound = errors.New("the block is not found on the access node") // pruned or beyond head
	ErrNotFound      = errors.New("resource not found on the access node")
)

const (
	pathGetBlocks     = "/v1/blocks?height=%s&expand=payload"
	pathGetCollection = "/v1/collections/%s"
	pathGetTx         = "/v1/transactions/%s"
	pathGetTxResult   = "/v1/transaction_results/%s"
	pathGetLatest     = "/v1/blocks?height=sealed"
)

// AccessClient talks to one chain access node over its REST API.
type AccessClient struct {
	hc   *http.Client
	host string
}

func NewAccessClient(host string) (*AccessClient, error) {
	transport := &http.Transport{
		DisableCompression:  true,
		MaxIdleConnsPerHost: 1000,
		MaxConnsPerHost:     1000,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &http.Client{
		Timeout:   10 * time.Minute,
		Transport: transport,
	}
	return &AccessClient{hc: client, host: host}, nil
}

func (c *AccessClient) GetLatestBlockHeight(ctx context.Context) (uint64, error) {
	var blocks []*types.BlockResponse
	if err := c.getJSON(ctx, pathGetLatest, &blocks); err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, ErrBlockNotFound
	}
	return strconv.ParseUint(blocks[0].Header.Height, 10, 64)
}

func (c *AccessClient) GetBlockByHeight(ctx context.Context, height uint64) (*types.BlockResponse, error) {
	var blocks []*types.BlockResponse
	path := fmt.Sprintf(pathGetBlocks, strconv.FormatUint(height, 10))
	if err := c.getJSON(ctx, path, &blocks); err != nil {
		if errors.Is(err, ErrNotFound) {
			// not sealed yet, or pruned
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, ErrBlockNotFound
	}
	return blocks[0], nil
}

func (c *AccessClient) GetCollection(ctx context.Context, id string) (*types.CollectionResponse, error) {
	collection := &types.CollectionResponse{}
	if err := c.getJSON(ctx, fmt.Sprintf(pathGetCollection, id), collection); err != nil {
		return nil, err
	}
	return collection, nil
}

func (c *AccessClient) GetTransaction(ctx context.Context, id string) (*types.TransactionResponse, error) {
	tx := &types.TransactionResponse{}
	if err := c.getJSON(ctx, fmt.Sprintf(pathGetTx, id), tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *AccessClient) GetTransactionResult(ctx context.Context, id string) (*types.TransactionResultResponse, error) {
	result := &types.TransactionResultResponse{}
	if err := c.getJSON(ctx, fmt.Sprintf(pathGetTxResult, id), result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *AccessClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return err
	}
	r, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		err = r.Body.Close()
	}()
	respBz, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("error reading http response body %s", err)
	}
	if r.StatusCode != http.StatusOK {
		if r.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("received non-OK response status: %s", r.Status)
	}
	return json.Unmarshal(respBz, out)
}
