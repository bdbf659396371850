//go:build functional

// Package functional runs the HTTP surface end to end over a real listener
// with file-backed storage.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/auth"
	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/handler"
	"github.com/vyrodovalexey/inventory-tracker/internal/persist"
	"github.com/vyrodovalexey/inventory-tracker/internal/server"
	"github.com/vyrodovalexey/inventory-tracker/internal/storage"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestBackend  = "TEST_STORAGE_BACKEND"
	EnvTestMetrics  = "TEST_METRICS_ENABLED"
	EnvTestLogLevel = "TEST_LOG_LEVEL"
)

// Default test configuration values.
const (
	DefaultBackend          = storage.BackendFile
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 5 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultReadyTimeout     = 10 * time.Second
)

// TestServer is one running instance of the HTTP surface.
type TestServer struct {
	Items   *store.ItemStore
	BaseURL string
	WSURL   string

	dir    string
	auth   auth.Settings
	kv     storage.KV
	writer *persist.Writer
	srv    *server.Server
	t      *testing.T
}

// NewTestServer starts a server over a fresh storage directory.
func NewTestServer(t *testing.T, settings auth.Settings) *TestServer {
	t.Helper()

	ts := &TestServer{dir: t.TempDir(), auth: settings, t: t}
	ts.Start()
	t.Cleanup(ts.Stop)
	return ts
}

func backend() string {
	if b := os.Getenv(EnvTestBackend); b != "" {
		return b
	}
	return DefaultBackend
}

func logger(t *testing.T) *zap.Logger {
	if os.Getenv(EnvTestLogLevel) == "" {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("zap.NewDevelopment() error = %v", err)
	}
	return l
}

// Start opens storage, loads the collection and serves on a random port.
func (ts *TestServer) Start() {
	t := ts.t
	t.Helper()

	log := logger(t)
	metrics, _ := strconv.ParseBool(os.Getenv(EnvTestMetrics))

	cfg := config.Default()
	cfg.StorageBackend = backend()
	cfg.StoragePath = ts.dir
	cfg.MetricsEnabled = metrics
	cfg.ShutdownTimeout = DefaultShutdownTimeout

	kv, err := storage.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	adapter := storage.NewAdapter(kv, cfg.StorageKey, log)
	writer := persist.NewWriter(adapter, log, persist.Options{})

	items := store.NewItemStore(log)
	items.OnChange(writer.Enqueue)
	if err := items.Initialize(context.Background(), adapter); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	hub := handler.NewHub(items, log)
	items.OnChange(hub.Broadcast)

	authenticator, err := auth.New(ts.auth, log)
	if err != nil {
		t.Fatalf("auth.New() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	srv := server.New(cfg, log, items, hub, authenticator)
	go func() {
		if err := srv.Serve(ln); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	addr := ln.Addr().String()
	ts.Items = items
	ts.BaseURL = "http://" + addr
	ts.WSURL = "ws://" + addr + "/ws"
	ts.kv = kv
	ts.writer = writer
	ts.srv = srv

	ts.waitForReady()
}

func (ts *TestServer) waitForReady() {
	deadline := time.Now().Add(DefaultReadyTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.BaseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	ts.t.Fatalf("server did not become ready within %s", DefaultReadyTimeout)
}

// Stop shuts the server down and writes the pending snapshot.
func (ts *TestServer) Stop() {
	if ts.srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.srv.Shutdown(ctx); err != nil {
		ts.t.Logf("shutdown error: %v", err)
	}
	if err := ts.writer.Close(ctx); err != nil {
		ts.t.Errorf("writer close error: %v", err)
	}
	if err := ts.kv.Close(); err != nil {
		ts.t.Errorf("storage close error: %v", err)
	}
	ts.srv = nil
}

// Restart stops the server and starts a new one over the same storage.
func (ts *TestServer) Restart() {
	ts.Stop()
	ts.Start()
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends a request with an optional JSON body and extra headers.
func (ts *TestServer) Do(method, path string, body any, headers map[string]string) *Response {
	ts.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, ts.BaseURL+path, reader)
	if err != nil {
		ts.t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatalf("read body: %v", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
}

// ItemResponse is an item as the API returns it.
type ItemResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ErrorResponse is the API error body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// DecodeData unmarshals the data field of a success envelope into out.
func DecodeData(t *testing.T, resp *Response, out any) {
	t.Helper()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		t.Fatalf("decode envelope %q: %v", resp.Body, err)
	}
	if !env.Success {
		t.Fatalf("envelope not successful: %s", resp.Body)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %q: %v", env.Data, err)
	}
}

// DecodeError unmarshals an error body.
func DecodeError(t *testing.T, resp *Response) ErrorResponse {
	t.Helper()

	var e ErrorResponse
	if err := json.Unmarshal(resp.Body, &e); err != nil {
		t.Fatalf("decode error %q: %v", resp.Body, err)
	}
	return e
}

// AssertStatusCode fails the test if resp has an unexpected status.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()

	if resp.StatusCode != expected {
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, expected, resp.Body)
	}
}

// CreateItem posts a draft and returns the created item.
func CreateItem(t *testing.T, ts *TestServer, name string, quantity, price any) ItemResponse {
	t.Helper()

	resp := ts.Do(http.MethodPost, "/api/v1/items",
		map[string]any{"name": name, "quantity": quantity, "price": price}, nil)
	AssertStatusCode(t, resp, http.StatusCreated)

	var item ItemResponse
	DecodeData(t, resp, &item)
	return item
}

// ItemPath returns the path of one item.
func ItemPath(id string) string {
	return fmt.Sprintf("/api/v1/items/%s", id)
}
