package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

const defaultPrivateBaseURL = "https://api.bitbank.cc"

// AuthMode selects the bitbank private API signing scheme.
type AuthMode string

const (
	// AuthNonce signs with a monotonically increasing millisecond nonce.
	AuthNonce AuthMode = "NONCE"
	// AuthTimeWindow signs with the request time and an accept window.
	AuthTimeWindow AuthMode = "TIME_WINDOW"
)

// PrivateClient talks to the bitbank private API. Signing is
// HMAC-SHA256 over nonce+path(+query) for GET and nonce+body for POST;
// the signed body bytes are exactly the bytes sent.
type PrivateClient struct {
	base         string
	apiKey       string
	apiSecret    string
	authMode     AuthMode
	timeWindowMS int64
	httpc        *http.Client

	mu        sync.Mutex
	lastNonce int64
}

// NewPrivateClient creates a private API client.
func NewPrivateClient(apiKey, apiSecret string, authMode AuthMode, timeWindowMS int64, timeout time.Duration) *PrivateClient {
	if authMode != AuthNonce {
		authMode = AuthTimeWindow
	}
	if timeWindowMS <= 0 {
		timeWindowMS = 5000
	}
	return &PrivateClient{
		base:         defaultPrivateBaseURL,
		apiKey:       apiKey,
		apiSecret:    apiSecret,
		authMode:     authMode,
		timeWindowMS: timeWindowMS,
		httpc:        &http.Client{Timeout: timeout},
	}
}

// FreeJPY returns the free JPY amount as integer yen.
func (c *PrivateClient) FreeJPY(ctx context.Context) (int64, error) {
	var payload struct {
		Assets []struct {
			Asset      string          `json:"asset"`
			FreeAmount json.RawMessage `json:"free_amount"`
		} `json:"assets"`
	}
	if err := c.request(ctx, http.MethodGet, "/v1/user/assets", nil, &payload); err != nil {
		return 0, err
	}

	for _, a := range payload.Assets {
		if a.Asset == "jpy" {
			return int64(looseFloat(a.FreeAmount)), nil
		}
	}
	return 0, nil
}

// MarketBuy places a market buy order and returns the normalized result.
// The quantity must already be rounded to the pair's step rules.
func (c *PrivateClient) MarketBuy(ctx context.Context, pair domain.Pair, qty float64) (domain.OrderResult, error) {
	body := map[string]string{
		"pair":   pair.String(),
		"amount": decimal.NewFromFloat(qty).String(),
		"side":   "buy",
		"type":   "market",
	}

	var payload struct {
		OrderID        json.Number     `json:"order_id"`
		AveragePrice   json.RawMessage `json:"average_price"`
		ExecutedAmount json.RawMessage `json:"executed_amount"`
	}
	if err := c.request(ctx, http.MethodPost, "/v1/user/spot/order", body, &payload); err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		OrderID:   payload.OrderID.String(),
		AvgPrice:  looseFloat(payload.AveragePrice),
		FilledQty: looseFloat(payload.ExecutedAmount),
	}, nil
}

func (c *PrivateClient) request(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	signed := path
	if method == http.MethodPost {
		signed = string(payload)
	}
	c.authorize(req, signed)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "private %s %s failed", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "private %s %s read failed", method, path)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("private %s %s -> %d", method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrapf(err, "private %s %s decode failed", method, path)
	}
	if env.Success != 1 {
		return errors.Errorf("private %s %s success != 1: %s", method, path, string(raw))
	}
	return errors.Wrapf(json.Unmarshal(env.Data, out), "private %s %s data decode failed", method, path)
}

// authorize sets the auth headers. signed is the path (with query) for
// GET or the exact body bytes for POST.
func (c *PrivateClient) authorize(req *http.Request, signed string) {
	switch c.authMode {
	case AuthNonce:
		nonce := c.nextNonce()
		req.Header.Set("ACCESS-KEY", c.apiKey)
		req.Header.Set("ACCESS-NONCE", nonce)
		req.Header.Set("ACCESS-SIGNATURE", c.sign(nonce+signed))
	default:
		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		window := strconv.FormatInt(c.timeWindowMS, 10)
		req.Header.Set("ACCESS-KEY", c.apiKey)
		req.Header.Set("ACCESS-REQUEST-TIME", now)
		req.Header.Set("ACCESS-TIME-WINDOW", window)
		req.Header.Set("ACCESS-SIGNATURE", c.sign(now+window+signed))
	}
}

// nextNonce returns a strictly increasing millisecond nonce.
func (c *PrivateClient) nextNonce() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixMilli()
	if now <= c.lastNonce {
		now = c.lastNonce + 1
	}
	c.lastNonce = now
	return strconv.FormatInt(now, 10)
}

func (c *PrivateClient) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
