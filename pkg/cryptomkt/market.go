package cryptomkt

import "github.com/shopspring/decimal"

// Market binds a market symbol to a Client. It holds no state of its own,
// so two Markets for the same symbol and client are interchangeable.
type Market struct {
	symbol string
	client *Client
}

// NewMarket creates a facade for symbol on client.
func NewMarket(symbol string, client *Client) *Market {
	return client.Market(symbol)
}

// Symbol returns the bound market symbol.
func (m *Market) Symbol() string {
	return m.symbol
}

// Ticker retrieves the ticker of the market.
func (m *Market) Ticker() ([]Ticker, error) {
	return m.client.GetTicker(m.symbol)
}

// BuyBook retrieves the buy side of the order book.
func (m *Market) BuyBook(p Pagination) ([]BookEntry, error) {
	return m.client.GetBook(m.symbol, OrderSideBuy, p)
}

// SellBook retrieves the sell side of the order book.
func (m *Market) SellBook(p Pagination) ([]BookEntry, error) {
	return m.client.GetBook(m.symbol, OrderSideSell, p)
}

// Trades retrieves the trades of the market between start and end (YYYY-MM-DD).
func (m *Market) Trades(start, end string, p Pagination) ([]Trade, error) {
	return m.client.GetTrades(m.symbol, start, end, p)
}

// ActiveOrders retrieves the user's open orders in the market.
func (m *Market) ActiveOrders(p Pagination) ([]Order, error) {
	return m.client.GetActiveOrders(m.symbol, p)
}

// ExecutedOrders retrieves the user's executed orders in the market.
func (m *Market) ExecutedOrders(p Pagination) ([]Order, error) {
	return m.client.GetExecutedOrders(m.symbol, p)
}

// CreateBuyOrder places a buy order for amount at price.
func (m *Market) CreateBuyOrder(amount, price decimal.Decimal) (*Order, error) {
	return m.client.CreateOrder(m.symbol, OrderSideBuy, amount, price)
}

// CreateSellOrder places a sell order for amount at price.
func (m *Market) CreateSellOrder(amount, price decimal.Decimal) (*Order, error) {
	return m.client.CreateOrder(m.symbol, OrderSideSell, amount, price)
}
