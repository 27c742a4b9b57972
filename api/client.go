// Package api provides a client for accessing the ethgas services through its
// JSON-RPC API.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	jsonrpc "github.com/gorilla/rpc/json"

	est "github.com/bitcoinfees/ethgas/estimate"
	"github.com/bitcoinfees/ethgas/predict"
)

type Config struct {
	Host    string
	Port    string
	Timeout int
}

type Client struct {
	httpclient *http.Client
	cfg        Config
}

func NewClient(cfg Config) *Client {
	httpclient := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	return &Client{httpclient: httpclient, cfg: cfg}
}

func (c *Client) Stop() error {
	_, err := c.doRPC("stop", nil)
	return err
}

func (c *Client) Status() (map[string]string, error) {
	r, err := c.doRPC("status", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]string
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GasPrice() (*predict.Recommendation, error) {
	r, err := c.doRPC("gasprice", nil)
	if err != nil {
		return nil, err
	}

	result := new(predict.Recommendation)
	if err := json.Unmarshal(r, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) PredictTable() (predict.Table, error) {
	r, err := c.doRPC("predicttable", nil)
	if err != nil {
		return nil, err
	}

	var result predict.Table
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Window returns the last n window observations, or all if n is 0.
func (c *Client) Window(n int) ([]est.Observation, error) {
	r, err := c.doRPC("window", n)
	if err != nil {
		return nil, err
	}

	var result []est.Observation
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) SetDebug(d bool) error {
	_, err := c.doRPC("setdebug", d)
	return err
}

func (c *Client) Config() (map[string]interface{}, error) {
	r, err := c.doRPC("config", nil)
	if err != nil {
		return nil, err
	}

	v := make(map[string]interface{})
	if err := json.Unmarshal(r, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) Metrics() (map[string]interface{}, error) {
	r, err := c.doRPC("metrics", nil)
	if err != nil {
		return nil, err
	}

	v := make(map[string]interface{})
	if err := json.Unmarshal(r, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) doRPC(method string, args interface{}) (json.RawMessage, error) {
	b, err := jsonrpc.EncodeClientRequest(method, args)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc.EncodeClientRequest: %v", err)
	}

	url := "http://" + net.JoinHostPort(c.cfg.Host, c.cfg.Port)
	req, err := http.NewRequest("POST", url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var m json.RawMessage
	if err := jsonrpc.DecodeClientResponse(resp.Body, &m); err != nil {
		return nil, fmt.Errorf("jsonrpc.DecodeClientResponse: %v", err)
	}
	return m, nil
}
