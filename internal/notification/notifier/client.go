// Package notifier sends text messages to applicants through an HTTP
// messaging gateway.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"correspondence/internal/notification/models"
	"correspondence/pkg/platform/circuit"
	"correspondence/pkg/platform/sentinel"
)

// SimulatedToken makes the client answer successfully without calling the
// gateway.
const SimulatedToken = "TEST_MODE"

const maxResponseBytes = 64 << 10

// ErrCircuitOpen is returned while the gateway is considered down.
var ErrCircuitOpen = fmt.Errorf("notifier circuit open: %w", sentinel.ErrUnavailable)

type Client struct {
	http        *http.Client
	baseURL     string
	token       string
	countryCode string
	limiter     *rate.Limiter
	breaker     *circuit.Breaker
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

// WithCountryCode sets the prefix added to local 8-digit numbers.
func WithCountryCode(code string) Option {
	return func(cl *Client) {
		cl.countryCode = code
	}
}

// New builds a client posting to baseURL. ratePerSec bounds outgoing
// messages; zero or less disables the limit.
func New(baseURL, token string, ratePerSec float64, opts ...Option) *Client {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	c := &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		countryCode: "591",
		limiter:     rate.NewLimiter(limit, 1),
		breaker:     circuit.New("notifier", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second)),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) simulated() bool {
	return c.token == "" || c.token == SimulatedToken
}

type textBody struct {
	Body string `json:"body"`
}

type sendPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// Send delivers text to phone. A gateway refusal is reported in the Result;
// err is set only when the gateway could not be reached.
func (c *Client) Send(ctx context.Context, phone, text string) (models.Result, error) {
	to := c.FormatPhone(phone)
	if c.simulated() {
		c.logger.InfoContext(ctx, "notifier in simulation mode, message not sent", "to", to)
		return models.Result{Success: true, MessageID: "simulated-message-id"}, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Result{}, fmt.Errorf("wait for send slot: %w", err)
	}
	if !c.breaker.Allow() {
		return models.Result{}, ErrCircuitOpen
	}

	body, err := json.Marshal(sendPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("marshal message: %w", err)
	}
	status, raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/messages", body)
	if err != nil {
		c.breaker.RecordFailure()
		return models.Result{}, err
	}
	if status >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	return parseSend(status, raw), nil
}

func parseSend(status int, raw []byte) models.Result {
	parsed := gjson.ParseBytes(raw)
	if status >= 200 && status < 300 {
		if msgID := parsed.Get("messages.0.id"); msgID.Exists() {
			return models.Result{Success: true, MessageID: msgID.String()}
		}
		return models.Result{Error: "gateway response carries no message id"}
	}
	if msg := parsed.Get("error.message"); msg.Exists() {
		return models.Result{Error: msg.String()}
	}
	return models.Result{Error: fmt.Sprintf("gateway answered %d", status)}
}

// Status asks the gateway for the delivery status of a sent message.
func (c *Client) Status(ctx context.Context, messageID string) (string, error) {
	if c.simulated() {
		return "simulation", nil
	}
	status, raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/messages/"+messageID, nil)
	if err != nil {
		return "", err
	}
	parsed := gjson.ParseBytes(raw)
	if status != http.StatusOK {
		if msg := parsed.Get("error.message"); msg.Exists() {
			return "", errors.New(msg.String())
		}
		return "", fmt.Errorf("gateway answered %d", status)
	}
	return parsed.Get("status").String(), nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read gateway response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// FormatPhone keeps the digits of phone and prefixes the country code to
// local 8-digit numbers.
func (c *Client) FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 8 {
		return c.countryCode + digits
	}
	return digits
}
