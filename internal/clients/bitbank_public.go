// Package clients contains the REST adapters for bitbank and the LINE
// Messaging API.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/okanelab/bitbank-dca/internal/domain"
	"github.com/okanelab/bitbank-dca/pkg/retrier"
)

const defaultPublicBaseURL = "https://public.bitbank.cc"

// PublicClient talks to the bitbank public API:
//
//	GET /{pair}/ticker
//	GET /{pair}/depth
//	GET /{pair}/candlestick/{type}/{yyyymmdd}
//
// Responses are wrapped in {"success":1,"data":{...}}; success != 1 is an
// infrastructure error. Idempotent GETs are retried with backoff.
type PublicClient struct {
	base    string
	httpc   *http.Client
	retrier *retrier.Retrier
}

// NewPublicClient creates a public API client.
func NewPublicClient(timeout time.Duration) *PublicClient {
	return &PublicClient{
		base:    defaultPublicBaseURL,
		httpc:   &http.Client{Timeout: timeout},
		retrier: retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(300*time.Millisecond)),
	}
}

type envelope struct {
	Success int             `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Ticker fetches the ticker snapshot for a pair.
func (c *PublicClient) Ticker(ctx context.Context, pair domain.Pair) (domain.Ticker, error) {
	var payload struct {
		Sell      json.RawMessage `json:"sell"`
		Buy       json.RawMessage `json:"buy"`
		Last      json.RawMessage `json:"last"`
		Open      json.RawMessage `json:"open"`
		Timestamp int64           `json:"timestamp"`
	}
	if err := c.get(ctx, fmt.Sprintf("/%s/ticker", pair.String()), &payload); err != nil {
		return domain.Ticker{}, err
	}

	return domain.Ticker{
		Pair: pair,
		Sell: looseFloat(payload.Sell),
		Buy:  looseFloat(payload.Buy),
		Last: looseFloat(payload.Last),
		Open: looseFloat(payload.Open),
		Ts:   time.UnixMilli(payload.Timestamp),
	}, nil
}

// Depth fetches the order book, best price first on both sides.
func (c *PublicClient) Depth(ctx context.Context, pair domain.Pair) (domain.OrderBook, error) {
	var payload struct {
		Bids      [][2]json.RawMessage `json:"bids"`
		Asks      [][2]json.RawMessage `json:"asks"`
		Timestamp int64                `json:"timestamp"`
	}
	if err := c.get(ctx, fmt.Sprintf("/%s/depth", pair.String()), &payload); err != nil {
		return domain.OrderBook{}, err
	}

	return domain.OrderBook{
		Pair: pair,
		Bids: bookSide(payload.Bids),
		Asks: bookSide(payload.Asks),
		Ts:   time.UnixMilli(payload.Timestamp),
	}, nil
}

// Candlestick fetches one day of candles, oldest first. The day string is
// yyyymmdd in JST.
func (c *PublicClient) Candlestick(ctx context.Context, pair domain.Pair, candleType, yyyymmdd string) ([]domain.Candle, error) {
	var payload struct {
		Candlestick []struct {
			Type  string               `json:"type"`
			OHLCV [][6]json.RawMessage `json:"ohlcv"`
		} `json:"candlestick"`
	}
	if err := c.get(ctx, fmt.Sprintf("/%s/candlestick/%s/%s", pair.String(), candleType, yyyymmdd), &payload); err != nil {
		return nil, err
	}
	if len(payload.Candlestick) == 0 {
		return nil, nil
	}

	rows := payload.Candlestick[0].OHLCV
	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, domain.Candle{
			Open:   looseFloat(row[0]),
			High:   looseFloat(row[1]),
			Low:    looseFloat(row[2]),
			Close:  looseFloat(row[3]),
			Volume: looseFloat(row[4]),
			Ts:     time.UnixMilli(int64(looseFloat(row[5]))),
		})
	}
	return candles, nil
}

func (c *PublicClient) get(ctx context.Context, path string, out any) error {
	data, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (json.RawMessage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "public GET %s failed", path)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "public GET %s read failed", path)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("public GET %s -> %d", path, resp.StatusCode)
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, errors.Wrapf(err, "public GET %s decode failed", path)
		}
		if env.Success != 1 {
			return nil, errors.Errorf("public GET %s success != 1", path)
		}
		return env.Data, nil
	})
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, out), "public GET %s data decode failed", path)
}

// looseFloat parses a bitbank numeric field, which may arrive as a JSON
// string or number. Unparseable values default to 0.
func looseFloat(raw json.RawMessage) float64 {
	trimmed := bytes.Trim(bytes.TrimSpace(raw), `"`)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0
	}
	d, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func bookSide(levels [][2]json.RawMessage) []domain.BookLevel {
	side := make([]domain.BookLevel, 0, len(levels))
	for _, lvl := range levels {
		side = append(side, domain.BookLevel{Price: looseFloat(lvl[0]), Amount: looseFloat(lvl[1])})
	}
	return side
}
