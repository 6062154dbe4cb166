package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func rpcServer(t *testing.T, handle func(req rpcRequest) map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := handle(req)
		resp["jsonrpc"] = "2.0"
		resp["id"] = req.ID

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}
		if len(req.Params) != 2 {
			t.Errorf("expected 2 params, got %d", len(req.Params))
			return map[string]interface{}{"result": nil}
		}
		cfg, ok := req.Params[1].(map[string]interface{})
		if !ok || cfg["encoding"] != "jsonParsed" || cfg["commitment"] != "confirmed" {
			t.Errorf("unexpected config: %v", req.Params[1])
		}

		return map[string]interface{}{
			"result": map[string]interface{}{
				"slot":      int64(123456),
				"blockTime": int64(1700000000),
				"meta": map[string]interface{}{
					"err":          nil,
					"preBalances":  []uint64{5_000_000_000, 1},
					"postBalances": []uint64{4_000_000_000, 1},
					"preTokenBalances": []map[string]interface{}{},
					"postTokenBalances": []map[string]interface{}{
						{
							"accountIndex": 1,
							"mint":         "mintA",
							"owner":        "wallet1",
							"uiTokenAmount": map[string]interface{}{
								"amount":         "1500000",
								"decimals":       6,
								"uiAmount":       1.5,
								"uiAmountString": "1.5",
							},
						},
					},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []interface{}{
							map[string]interface{}{"pubkey": "wallet1", "signer": true, "writable": true},
							"addr2",
						},
					},
				},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}

	if tx.BlockTime == nil || *tx.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000, got %v", tx.BlockTime)
	}

	if len(tx.Message.AccountKeys) != 2 {
		t.Fatalf("expected 2 account keys, got %d", len(tx.Message.AccountKeys))
	}

	if !tx.Message.AccountKeys[0].Signer || tx.Message.AccountKeys[1].Pubkey != "addr2" {
		t.Errorf("unexpected account keys: %+v", tx.Message.AccountKeys)
	}

	if idx := tx.AccountIndex("wallet1"); idx != 0 {
		t.Errorf("expected wallet1 at index 0, got %d", idx)
	}

	if tx.Meta == nil || len(tx.Meta.PostTokenBalances) != 1 {
		t.Fatalf("expected 1 post token balance, got %+v", tx.Meta)
	}

	if tx.Meta.PreTokenBalances == nil {
		t.Error("expected empty, non-nil pre token balances")
	}

	if got := tx.Meta.PostTokenBalances[0].UITokenAmount.Value().String(); got != "1.5" {
		t.Errorf("expected ui amount 1.5, got %s", got)
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"result": nil}
	})

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_GetTransaction_Malformed(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{
			"result": map[string]interface{}{
				"slot": int64(1),
				"meta": map[string]interface{}{
					"preBalances":  []uint64{1, 2},
					"postBalances": []uint64{1},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{"accountKeys": []string{"a", "b"}},
				},
			},
		}
	})

	client := NewHTTPClient(server.URL)

	_, err := client.GetTransaction(context.Background(), "sig")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

func TestHTTPClient_GetSignaturesForAddress(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		if req.Method != "getSignaturesForAddress" {
			t.Errorf("expected method getSignaturesForAddress, got %s", req.Method)
		}
		cfg, _ := req.Params[1].(map[string]interface{})
		if cfg["limit"] != float64(10) {
			t.Errorf("expected limit 10, got %v", cfg["limit"])
		}

		blockTime := int64(1700000000)
		return map[string]interface{}{
			"result": []map[string]interface{}{
				{"signature": "sig1", "slot": int64(100), "blockTime": blockTime, "err": nil},
				{"signature": "sig2", "slot": int64(101), "blockTime": nil, "err": nil},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	sigs, err := client.GetSignaturesForAddress(ctx, "testaddr", &SignaturesOpts{Limit: 10})
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}

	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}

	if sigs[0].Signature != "sig1" {
		t.Errorf("expected sig1, got %s", sigs[0].Signature)
	}

	if sigs[1].BlockTime != nil {
		t.Errorf("expected nil blockTime, got %v", *sigs[1].BlockTime)
	}
}

func TestHTTPClient_GetSignaturesForAddress_Null(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"result": nil}
	})

	client := NewHTTPClient(server.URL)

	_, err := client.GetSignaturesForAddress(context.Background(), "addr", nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

func TestHTTPClient_GetAsset(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		if req.Method != "getAsset" {
			t.Errorf("expected method getAsset, got %s", req.Method)
		}
		if len(req.Params) != 1 || req.Params[0] != "mintA" {
			t.Errorf("unexpected params: %v", req.Params)
		}
		return map[string]interface{}{
			"result": map[string]interface{}{
				"id": "mintA",
				"content": map[string]interface{}{
					"json_uri": "https://example.com/a.json",
					"files":    []map[string]interface{}{{"uri": "https://example.com/a.png", "mime": "image/png"}},
					"metadata": map[string]interface{}{"name": "Alpha", "symbol": "ALP"},
					"links":    map[string]interface{}{"image": "ipfs://cid"},
				},
				"token_info": map[string]interface{}{"symbol": "ALP", "decimals": 6, "supply": 1000},
			},
		}
	})

	client := NewHTTPClient(server.URL)

	asset, err := client.GetAsset(context.Background(), "mintA")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}

	if asset.Content == nil || asset.Content.Metadata == nil || asset.Content.Metadata.Name != "Alpha" {
		t.Fatalf("unexpected content: %+v", asset.Content)
	}

	if asset.Content.Links.Image != "ipfs://cid" {
		t.Errorf("unexpected links image: %s", asset.Content.Links.Image)
	}

	if asset.TokenInfo == nil || asset.TokenInfo.Decimals != 6 {
		t.Errorf("unexpected token info: %+v", asset.TokenInfo)
	}
}

func TestHTTPClient_GetAsset_NotFound(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"result": nil}
	})

	client := NewHTTPClient(server.URL)

	_, err := client.GetAsset(context.Background(), "mintA")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.GetAsset(context.Background(), "mintA")
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}

	if rlErr.RetryAfter() != 2*time.Second {
		t.Errorf("expected retry after 2s, got %v", rlErr.RetryAfter())
	}
}

func TestHTTPClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.GetTransaction(context.Background(), "sig")
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}

	if trErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", trErr.StatusCode)
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}
	})

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetSignaturesForAddress(ctx, "addr", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_MalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.GetSignaturesForAddress(context.Background(), "addr", nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

func TestHTTPClient_Observer(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"result": []interface{}{}}
	})

	var calls atomic.Int32
	client := NewHTTPClient(server.URL, WithObserver(func(method string, _ time.Duration, err error) {
		if method != "getSignaturesForAddress" || err != nil {
			t.Errorf("unexpected observation: %s %v", method, err)
		}
		calls.Add(1)
	}))

	if _, err := client.GetSignaturesForAddress(context.Background(), "addr", nil); err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 observation, got %d", calls.Load())
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetTransaction(ctx, "sig")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"0", 0},
		{"-1", 0},
		{"soon", 0},
		{now.Add(5 * time.Second).Format(http.TimeFormat), 5 * time.Second},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.value, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestBuildEndpoint(t *testing.T) {
	got, err := BuildEndpoint("https://mainnet.helius-rpc.com/", "key-123")
	if err != nil {
		t.Fatalf("BuildEndpoint: %v", err)
	}
	if got != "https://mainnet.helius-rpc.com/?api-key=key-123" {
		t.Errorf("unexpected endpoint: %s", got)
	}

	got, err = BuildEndpoint("https://rpc.example.com", "")
	if err != nil {
		t.Fatalf("BuildEndpoint: %v", err)
	}
	if got != "https://rpc.example.com" {
		t.Errorf("unexpected endpoint: %s", got)
	}
}
