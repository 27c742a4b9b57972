// Package ethrpc implements the data collection abstractions in package
// collect by using an Ethereum node's JSON-RPC API.
package ethrpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	col "github.com/bitcoinfees/ethgas/collect"
)

type Config struct {
	URL string `json:"url" yaml:"url"`

	// Per-call timeout in seconds
	Timeout int `json:"timeout" yaml:"timeout"`
}

func Getters(ctx context.Context, cfg Config) (col.HeadGetter, col.BlockGetter, error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("ethrpc: url not set")
	}
	client, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	c := &rpcClient{client: client, timeout: time.Duration(cfg.Timeout) * time.Second}
	return c.getHead, c.getBlock, nil
}

type rpcClient struct {
	client  *ethclient.Client
	timeout time.Duration
}

func (c *rpcClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *rpcClient) getHead(ctx context.Context) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	n, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (c *rpcClient) getBlock(ctx context.Context, number int64) (col.Block, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	b, err := c.client.BlockByNumber(ctx, big.NewInt(number))
	if err != nil {
		return nil, err
	}
	return newBlock(b.Header(), b.Transactions()), nil
}
