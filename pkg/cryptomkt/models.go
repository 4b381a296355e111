package cryptomkt

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// OrderSide represents order side (buy or sell)
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

func (s OrderSide) valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// DefaultLimit is the page size used when Pagination.Limit is zero.
const DefaultLimit = 100

// Pagination selects a page of a listing endpoint, starting at page 0. A
// zero Limit uses the client default. Values are forwarded as given; the
// exchange accepts limits between 20 and 100.
type Pagination struct {
	Page  int
	Limit int
}

// envelope is the outer object of every API response.
//
//	{"status": {"code": 200, "message": "..."}, "data": ...}
type envelope struct {
	Status  *envelopeStatus `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type envelopeStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Ticker represents market ticker data
type Ticker struct {
	Market    string          `json:"market"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	LastPrice decimal.Decimal `json:"last_price"`
	Timestamp string          `json:"timestamp"`
}

// BookEntry is one price level of the order book.
type BookEntry struct {
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp string          `json:"timestamp"`
}

// Trade is one executed trade of a market.
type Trade struct {
	TradeID     string          `json:"tid"`
	Market      string          `json:"market"`
	MarketTaker OrderSide       `json:"market_taker"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   string          `json:"timestamp"`
}

// OrderAmount holds the amount breakdown of an order.
type OrderAmount struct {
	Original  decimal.Decimal `json:"original"`
	Remaining decimal.Decimal `json:"remaining"`
	Executed  decimal.Decimal `json:"executed"`
}

// Order represents an order as returned by the exchange. It is never
// cached or modified locally.
type Order struct {
	ID             string          `json:"id"`
	Market         string          `json:"market"`
	Side           OrderSide       `json:"type"`
	Status         string          `json:"status"`
	Price          decimal.Decimal `json:"price"`
	Amount         OrderAmount     `json:"amount"`
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// Balance represents the balance of one wallet.
type Balance struct {
	Wallet    string          `json:"wallet"`
	Available decimal.Decimal `json:"available"`
	Balance   decimal.Decimal `json:"balance"`
}
