package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/auth"
	"github.com/vovakirdan/chatroom-server/internal/config"
	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/service/chats"
	"github.com/vovakirdan/chatroom-server/internal/service/requests"
	"github.com/vovakirdan/chatroom-server/internal/store"
	"github.com/vovakirdan/chatroom-server/internal/store/sqlite"
)

// logBuffer collects server log lines; handler goroutines may still write after the test body returns.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	ts    *httptest.Server
	hub   *core.Hub
	store store.Store
	auth  *auth.Service
	cfg   config.Config
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, cfg config.Config) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}

	return auth.NewService(st, jwtConfig)
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "test"
	cfg.OutboundQueueSize = 16
	cfg.PersistWorkers = 1
	cfg.PersistTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	// Warnings and errors, failed upgrades among them, are printed when the test fails.
	logs := &logBuffer{}
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("server log:\n%s", logs.String())
		}
	})
	testLogger := zerolog.New(logs).Level(zerolog.WarnLevel)
	st := createTestStore(t)
	authService := createTestAuthService(t, st, cfg)

	reg := prometheus.NewRegistry()
	metrics := core.NewMetrics(reg)
	bridge := core.NewBridge(st, core.BridgeConfig{
		QueueSize: cfg.PersistQueueSize,
		Workers:   cfg.PersistWorkers,
		Timeout:   cfg.PersistTimeout,
	}, metrics, &testLogger)
	hub := core.NewHub(bridge, metrics, &testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	bridgeDone := make(chan struct{})
	go func() {
		bridge.Run(ctx)
		close(bridgeDone)
	}()
	go hub.Run(ctx)

	server := NewServer(Deps{
		Hub:      hub,
		Auth:     authService,
		Store:    st,
		Requests: requests.New(st, hub),
		Chats:    chats.New(st, hub),
		Metrics:  metrics,
		Gatherer: reg,
	}, &cfg, &testLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-bridgeDone
	})

	return &testEnv{ts: ts, hub: hub, store: st, auth: authService, cfg: cfg}
}

// register creates a user directly through the auth service and returns it with its token.
func (e *testEnv) register(t *testing.T, name string) (*store.User, string) {
	t.Helper()

	user, token, err := e.auth.Register(context.Background(), auth.Registration{
		Name:     name,
		Username: strings.ToLower(name),
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return user, token
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

func (e *testEnv) dial(ctx context.Context, t *testing.T, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL(), &websocket.DialOptions{
		HTTPHeader: stdhttp.Header{"Cookie": {e.cfg.CookieName + "=" + token}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// waitConnections waits until the hub has admitted n connections.
func (e *testEnv) waitConnections(t *testing.T, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.hub.Registry().Len() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d connections, have %d", n, e.hub.Registry().Len())
}

type outboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func sendEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, map[string]any{"type": typ, "data": json.RawMessage(payload)}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readEvent reads frames until one carries the named event.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, name string) outboundFrame {
	t.Helper()

	for {
		var frame outboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		if frame.Event == name {
			return frame
		}
	}
}
