// Package pricer resolves reference prices, short-window volatility and
// 24h change from bitbank public market data.
package pricer

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

// Candle5m is the candlestick interval used for the volatility sample.
const Candle5m = "5min"

// ErrNoMarketData is returned when neither the order book nor the ticker
// yields a usable price.
var ErrNoMarketData = errors.New("no market data available")

// jst is the exchange-local timezone; candlestick days are JST days.
var jst = time.FixedZone("JST", 9*60*60)

type marketData interface {
	Ticker(ctx context.Context, pair domain.Pair) (domain.Ticker, error)
	Depth(ctx context.Context, pair domain.Pair) (domain.OrderBook, error)
	Candlestick(ctx context.Context, pair domain.Pair, candleType, yyyymmdd string) ([]domain.Candle, error)
}

// Service answers price questions for the planner and run coordinator.
type Service struct {
	client marketData
	l      *zap.Logger
	now    func() time.Time
}

// New creates a pricer backed by the given market data client.
func New(client marketData, l *zap.Logger) *Service {
	return &Service{client: client, l: l, now: time.Now}
}

// Resolve returns the reference quote for a pair: order book best bid/ask
// when both sides are present, ticker snapshot otherwise. It fails only
// when no price is obtainable at all; a bad spread is the guard's concern.
func (s *Service) Resolve(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	book, err := s.client.Depth(ctx, pair)
	if err == nil {
		bid, ask := bestOfBook(book)
		if bid > 0 && ask > 0 {
			return domain.Quote{
				Pair:      pair,
				Price:     ask,
				BestBid:   bid,
				BestAsk:   ask,
				SpreadPct: spreadPct(bid, ask),
				Ts:        book.Ts,
			}, nil
		}
	} else {
		s.l.Debug("depth fetch failed, falling back to ticker",
			zap.String("pair", pair.String()), zap.Error(err))
	}

	ticker, err := s.client.Ticker(ctx, pair)
	if err != nil {
		return domain.Quote{}, errors.Wrapf(ErrNoMarketData, "pair %s: depth and ticker unusable (%v)", pair.String(), err)
	}

	price := ticker.Sell
	if price <= 0 {
		price = ticker.Last
	}
	if price <= 0 {
		return domain.Quote{}, errors.Wrapf(ErrNoMarketData, "pair %s: ticker has no price", pair.String())
	}

	var sp float64
	if ticker.Buy > 0 && ticker.Sell > 0 {
		sp = spreadPct(ticker.Buy, ticker.Sell)
	}
	return domain.Quote{
		Pair:      pair,
		Price:     price,
		BestBid:   ticker.Buy,
		BestAsk:   ticker.Sell,
		SpreadPct: sp,
		Ts:        ticker.Ts,
	}, nil
}

// Vol5m returns the absolute fractional change between the two most
// recent 5-minute closes. Fewer than two closes for the current JST day
// pulls in the prior day. A data shortfall is no signal, never an error.
func (s *Service) Vol5m(ctx context.Context, pair domain.Pair) float64 {
	now := s.now().In(jst)

	closes := s.latestCloses(ctx, pair, now)
	if len(closes) < 2 {
		prior := s.latestCloses(ctx, pair, now.AddDate(0, 0, -1))
		closes = append(prior, closes...)
		if len(closes) > 2 {
			closes = closes[len(closes)-2:]
		}
	}

	if len(closes) < 2 || closes[len(closes)-2] == 0 {
		return 0
	}
	return math.Abs(closes[len(closes)-1]/closes[len(closes)-2] - 1)
}

// Change24h computes the 24h percentage change from the ticker open/last.
// A non-positive or missing open yields 0; a transport failure is an
// error because the run-level dip computation depends on it.
func (s *Service) Change24h(ctx context.Context, pair domain.Pair) (float64, error) {
	ticker, err := s.client.Ticker(ctx, pair)
	if err != nil {
		return 0, errors.Wrapf(err, "ticker fetch failed for %s", pair.String())
	}
	if ticker.Open <= 0 {
		return 0, nil
	}
	return (ticker.Last - ticker.Open) / ticker.Open * 100, nil
}

// latestCloses returns up to the last two closes of the given JST day,
// oldest first. Fetch failures count as missing data.
func (s *Service) latestCloses(ctx context.Context, pair domain.Pair, day time.Time) []float64 {
	candles, err := s.client.Candlestick(ctx, pair, Candle5m, day.Format("20060102"))
	if err != nil {
		s.l.Debug("candlestick fetch failed",
			zap.String("pair", pair.String()),
			zap.String("day", day.Format("20060102")),
			zap.Error(err))
		return nil
	}

	closes := make([]float64, 0, 2)
	start := len(candles) - 2
	if start < 0 {
		start = 0
	}
	for _, c := range candles[start:] {
		closes = append(closes, c.Close)
	}
	return closes
}

func bestOfBook(book domain.OrderBook) (bid, ask float64) {
	if len(book.Bids) > 0 {
		bid = book.Bids[0].Price
	}
	if len(book.Asks) > 0 {
		ask = book.Asks[0].Price
	}
	return bid, ask
}

func spreadPct(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 {
		return 0
	}
	mid := (bid + ask) / 2
	if mid <= 0 {
		return 0
	}
	return (ask - bid) / mid
}
