package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

// Observer is notified after every RPC call.
type Observer func(method string, elapsed time.Duration, err error)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
// It performs exactly one HTTP exchange per call; retry and pacing belong
// to the caller.
type HTTPClient struct {
	endpoint  string
	client    *resty.Client
	observer  Observer
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.SetTimeout(d)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = resty.NewWithClient(client)
	}
}

// WithObserver registers a per-call observer.
func WithObserver(o Observer) ClientOption {
	return func(c *HTTPClient) {
		c.observer = o
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   resty.New().SetTimeout(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client.
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
	return c
}

// BuildEndpoint embeds an API key into an RPC endpoint URL as ?api-key=.
func BuildEndpoint(base, apiKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse rpc endpoint: %w", err)
	}
	if apiKey != "" {
		q := u.Query()
		q.Set("api-key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs one JSON-RPC exchange and decodes the result into result.
// A null result is reported as ErrNotFound.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	err := c.exchange(ctx, method, params, result)
	if c.observer != nil {
		c.observer(method, time.Since(start), err)
	}
	return err
}

func (c *HTTPClient) exchange(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &TransportError{Method: method, Err: err}
	}

	// Handle rate limiting
	if resp.StatusCode() == http.StatusTooManyRequests {
		return &RateLimitError{
			Method:          method,
			RetryAfterDelay: parseRetryAfter(resp.Header().Get("Retry-After"), time.Now()),
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return &TransportError{
			Method:     method,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status: %s", truncate(resp.Body(), 256)),
		}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(resp.Body(), &rpcResp); err != nil {
		return &ParseError{Method: method, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if isNull(rpcResp.Result) {
		return ErrNotFound
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return &ParseError{Method: method, Err: fmt.Errorf("unmarshal result: %w", err)}
		}
	}

	return nil
}

// GetSignaturesForAddress retrieves signatures for an address with pagination.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &ParseError{Method: "getSignaturesForAddress", Err: errors.New("expected signature list, got null")}
		}
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetTransaction retrieves a transaction by signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
			"commitment":                     "confirmed",
		},
	}

	var result getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Transaction not found or pruned
			return nil, nil
		}
		return nil, err
	}

	if err := result.validate(); err != nil {
		return nil, &ParseError{Method: "getTransaction", Err: err}
	}

	return &Transaction{
		Slot:      result.Slot,
		BlockTime: result.BlockTime,
		Meta:      result.Meta,
		Message: TransactionMessage{
			AccountKeys: result.Transaction.Message.AccountKeys,
		},
	}, nil
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64            `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Meta        *TransactionMeta `json:"meta"`
	Transaction *struct {
		Message *struct {
			AccountKeys []AccountKey `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

func (r *getTransactionResult) validate() error {
	if r.Transaction == nil || r.Transaction.Message == nil {
		return errors.New("missing transaction message")
	}
	if r.Meta != nil && len(r.Meta.PreBalances) != len(r.Meta.PostBalances) {
		return fmt.Errorf("balance snapshots differ in length: pre=%d post=%d",
			len(r.Meta.PreBalances), len(r.Meta.PostBalances))
	}
	return nil
}

// GetAsset retrieves DAS asset data for a mint.
func (c *HTTPClient) GetAsset(ctx context.Context, mint string) (*Asset, error) {
	var asset Asset
	if err := c.call(ctx, "getAsset", []interface{}{mint}, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// parseRetryAfter decodes a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ RPCClient = (*HTTPClient)(nil)
