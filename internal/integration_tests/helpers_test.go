package integration_tests

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"correspondence/internal/app"
	dirModels "correspondence/internal/directory/models"
	dirService "correspondence/internal/directory/service"
	"correspondence/internal/platform/config"
	"correspondence/internal/platform/logger"
	id "correspondence/pkg/domain"
	"correspondence/pkg/testutil"
)

// gateway records messages posted to a fake messaging API.
type gateway struct {
	mu       sync.Mutex
	messages [][]byte
	server   *httptest.Server

	// when hold is set each request signals entered and waits for hold to close
	hold    chan struct{}
	entered chan struct{}
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	g := &gateway{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		g.mu.Lock()
		hold, entered := g.hold, g.entered
		g.mu.Unlock()
		if hold != nil {
			entered <- struct{}{}
			<-hold
		}
		g.mu.Lock()
		g.messages = append(g.messages, body)
		n := len(g.messages)
		g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.`+strconv.Itoa(n)+`"}]}`)
	}))
	t.Cleanup(g.server.Close)
	return g
}

// stall makes the gateway block every request until the returned release is
// called. The returned channel receives once per request that reaches it.
func (g *gateway) stall(t *testing.T) (<-chan struct{}, func()) {
	t.Helper()
	hold := make(chan struct{})
	entered := make(chan struct{}, 8)
	g.mu.Lock()
	g.hold, g.entered = hold, entered
	g.mu.Unlock()

	var once sync.Once
	release := func() { once.Do(func() { close(hold) }) }
	t.Cleanup(release)
	return entered, release
}

func (g *gateway) sent() [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]byte(nil), g.messages...)
}

func testConfig(notifierURL string) config.Config {
	return config.Config{
		Server:   config.Server{Addr: ":0", RequestTimeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Database: config.Database{TxTimeout: 5 * time.Second},
		Kafka:    config.Kafka{Topic: "procedure-events"},
		Routing:  config.Routing{AutoRejectDays: 5},
		Notifier: config.Notifier{URL: notifierURL, Token: "test-token", Ledger: "memory"},
		Outbox:   config.Outbox{BatchSize: 100, Retention: time.Hour},
		LogLevel: "error",
	}
}

type world struct {
	app      *app.App
	gateway  *gateway
	accounts map[string]*dirModels.Account
}

func newWorld(t *testing.T, cfg func(*config.Config)) *world {
	t.Helper()
	ctx := context.Background()
	gw := newGateway(t)
	c := testConfig(gw.server.URL)
	if cfg != nil {
		cfg(&c)
	}

	a, err := app.New(ctx, c, logger.NewWithWriter(io.Discard, c.LogLevel))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	accounts, err := dirService.Seed(ctx, a.Directory, "Gobierno Autonomo Municipal", "GAM", map[string]dirModels.Officer{
		"Ventanilla": {ID: id.NewOfficerID(), FullName: "Ana Quispe", JobTitle: "Recepcionista"},
		"Legal":      {ID: id.NewOfficerID(), FullName: "Luis Mamani", JobTitle: "Asesor legal"},
	})
	require.NoError(t, err)
	return &world{app: a, gateway: gw, accounts: accounts}
}

func (w *world) do(t *testing.T, account string, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(t, method, path, body)
	} else {
		req = testutil.NewRequest(t, method, path)
	}
	if acc, ok := w.accounts[account]; ok {
		testutil.AsAccount(req, acc.ID)
	}
	return testutil.DoRequest(w.app.Handler, req)
}

func jsonString(body []byte, path string) string {
	return gjson.GetBytes(body, path).String()
}
