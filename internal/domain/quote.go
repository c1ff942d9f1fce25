package domain

import "time"

// Quote reference price used for quantity calculation. Price is the best
// ask when available.
type Quote struct {
	Pair    Pair
	Price   float64
	BestBid float64
	BestAsk float64
	// SpreadPct is (ask - bid) / mid, 0 when either side is non-positive.
	SpreadPct float64
	Ts        time.Time
}

// Ticker snapshot returned by the public market data API.
type Ticker struct {
	Pair Pair
	Sell float64
	Buy  float64
	Last float64
	Open float64
	Ts   time.Time
}

// BookLevel is one price level of the order book.
type BookLevel struct {
	Price  float64
	Amount float64
}

// OrderBook order book sides, best price first.
type OrderBook struct {
	Pair Pair
	Bids []BookLevel
	Asks []BookLevel
	Ts   time.Time
}

// Candle single OHLCV candlestick.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Ts     time.Time
}

// OrderResult normalized result of a market buy.
type OrderResult struct {
	OrderID   string
	AvgPrice  float64
	FilledQty float64
}
