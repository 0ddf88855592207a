package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"correspondence/pkg/platform/circuit"
	"correspondence/pkg/platform/sentinel"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSendPostsMessage(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v18.0/123/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		got, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.HBgL"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL+"/v18.0/123/", "secret", 0, quiet())
	res, err := c.Send(context.Background(), "7654-3210", "Codigo: EXT-MPC-2025-000004")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "wamid.HBgL", res.MessageID)

	body := gjson.ParseBytes(got)
	assert.Equal(t, "59176543210", body.Get("to").String())
	assert.Equal(t, "text", body.Get("type").String())
	assert.Equal(t, "Codigo: EXT-MPC-2025-000004", body.Get("text.body").String())
}

func TestSendReportsGatewayRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "Invalid parameter", "code": 100}})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "secret", 0, quiet())
	res, err := c.Send(context.Background(), "987654321", "hola")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid parameter", res.Error)
}

func TestSendOpensCircuitOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "secret", 0, quiet(), WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))))
	for range 2 {
		res, err := c.Send(context.Background(), "987654321", "hola")
		require.NoError(t, err)
		assert.Equal(t, "gateway answered 502", res.Error)
	}

	_, err := c.Send(context.Background(), "987654321", "hola")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSimulationModeSkipsGateway(t *testing.T) {
	c := New("http://127.0.0.1:1", SimulatedToken, 0, quiet())
	res, err := c.Send(context.Background(), "987654321", "hola")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "simulated-message-id", res.MessageID)

	status, err := c.Status(context.Background(), "wamid.1")
	require.NoError(t, err)
	assert.Equal(t, "simulation", status)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/wamid.1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"wamid.1","status":"delivered"}`))
	}))
	t.Cleanup(srv.Close)

	status, err := New(srv.URL, "secret", 0, quiet()).Status(context.Background(), "wamid.1")
	require.NoError(t, err)
	assert.Equal(t, "delivered", status)
}

func TestFormatPhone(t *testing.T) {
	c := New("", "", 0)
	assert.Equal(t, "59176543210", c.FormatPhone("7654 3210"))
	assert.Equal(t, "987654321", c.FormatPhone("+987-654-321"))
	assert.Equal(t, "5187654321", New("", "", 0, WithCountryCode("51")).FormatPhone("87654321"))
}
