package cryptomkt

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.cryptomkt.com"
	APIVersion     = "v1"

	dateLayout = "2006-01-02"
)

// Client represents the CryptoMKT API client. Credentials are read-only
// after construction, so a Client is safe for concurrent use as long as
// its Transport is.
type Client struct {
	apiKey       string
	apiSecret    string
	baseURL      string
	timeout      time.Duration
	defaultLimit int
	transport    Transport
	now          func() time.Time
	logger       *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host (scheme and host, without version).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithTimeout sets the timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClock sets the time source used for timestamps and date defaults.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithDefaultLimit sets the page size used when Pagination.Limit is zero.
func WithDefaultLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.defaultLimit = limit
		}
	}
}

// WithLogger enables debug tracing of requests and responses.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new CryptoMKT API client. apiKey and apiSecret may be
// empty when only public endpoints are used.
func NewClient(apiKey, apiSecret string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		apiSecret:    apiSecret,
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		defaultLimit: DefaultLimit,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = NewRestyTransport(c.timeout)
	}

	return c
}

// HasCredentials reports whether authenticated endpoints can be called.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// Market returns a facade bound to the given market symbol.
func (c *Client) Market(symbol string) *Market {
	return &Market{symbol: symbol, client: c}
}

// path returns the versioned request path of an endpoint, e.g. /v1/book.
func (c *Client) path(ep Endpoint) string {
	return "/" + APIVersion + ep.Path
}

// limit returns the page size of p, applying the client default.
func (c *Client) limit(p Pagination) int {
	if p.Limit == 0 {
		return c.defaultLimit
	}
	return p.Limit
}

// today returns the current UTC date.
func (c *Client) today() string {
	return c.now().UTC().Format(dateLayout)
}

// do runs the request pipeline for one endpoint and decodes the data
// field of the response into result.
func (c *Client) do(ep Endpoint, params Params, result interface{}) error {
	params = params.compact()

	if ep.Auth && !c.HasCredentials() {
		return &AuthError{Endpoint: ep.Name}
	}

	path := c.path(ep)
	reqURL := c.baseURL + path

	var body []byte
	var signed Params
	if ep.Method == http.MethodPost {
		var err error
		body, err = json.Marshal(params.Strings())
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", ep.Name, err)
		}
		signed = params
	} else if len(params) > 0 {
		query := url.Values{}
		for k, v := range params.Strings() {
			query.Set(k, v)
		}
		reqURL += "?" + query.Encode()
	}

	headers := map[string]string{}
	if ep.Auth {
		headers = authHeaders(c.apiKey, c.apiSecret, UnixTimestamp(c.now()), path, signed)
	}

	if c.logger != nil {
		c.logger.WithField("endpoint", ep.Name).Debug(DebugRequest(ep.Method, reqURL, headers, body))
	}

	status, raw, err := c.transport.Send(ep.Method, reqURL, headers, body)
	if err != nil {
		return &TransportError{Endpoint: ep.Name, Err: err}
	}

	if c.logger != nil {
		c.logger.WithField("endpoint", ep.Name).Debug(DebugResponse(status, raw))
	}

	return decodeResponse(ep, status, raw, result)
}

// decodeResponse parses the envelope, applies the status gate and decodes
// the data field.
func decodeResponse(ep Endpoint, status int, raw []byte, result interface{}) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &DecodingError{Endpoint: ep.Name, HTTPStatus: status, Body: raw, Err: err}
	}

	if env.Status == nil {
		return &DecodingError{
			Endpoint:   ep.Name,
			HTTPStatus: status,
			Body:       raw,
			Err:        errors.New("response has no status object"),
		}
	}

	if env.Status.Code != http.StatusOK {
		msg := env.Status.Message
		if msg == "" {
			msg = env.Message
		}
		return &APIError{Endpoint: ep.Name, HTTPStatus: status, Code: env.Status.Code, Message: msg}
	}

	if result == nil || len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, result); err != nil {
		return &DecodingError{Endpoint: ep.Name, HTTPStatus: status, Body: raw, Err: err}
	}

	return nil
}

// requireMarket validates a market symbol argument.
func requireMarket(market string) error {
	if strings.TrimSpace(market) == "" {
		return &ValidationError{Field: "market", Reason: "market symbol is required"}
	}
	return nil
}

// requireID validates an order identifier argument.
func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Reason: "id is required"}
	}
	return nil
}

// GetMarkets retrieves the symbols of every available market
func (c *Client) GetMarkets() ([]string, error) {
	var markets []string
	if err := c.do(EndpointMarkets, nil, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// GetTicker retrieves ticker information for a market, or for every market
// when market is empty
func (c *Client) GetTicker(market string) ([]Ticker, error) {
	var tickers []Ticker
	if err := c.do(EndpointTicker, Params{"market": market}, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// GetBook retrieves one side of the order book of a market
func (c *Client) GetBook(market string, side OrderSide, p Pagination) ([]BookEntry, error) {
	if err := requireMarket(market); err != nil {
		return nil, err
	}
	if !side.valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown book side %q", side)}
	}

	limit := c.limit(p)
	params := Params{
		"market": market,
		"type":   string(side),
		"page":   p.Page,
		"limit":  limit,
	}

	var book []BookEntry
	if err := c.do(EndpointBook, params, &book); err != nil {
		return nil, err
	}
	return book, nil
}

// GetTrades retrieves the trades of a market between two dates
// (YYYY-MM-DD); start defaults to the current UTC date and end to start
func (c *Client) GetTrades(market, start, end string, p Pagination) ([]Trade, error) {
	if err := requireMarket(market); err != nil {
		return nil, err
	}
	if start == "" {
		start = c.today()
	}
	if end == "" {
		end = start
	}

	limit := c.limit(p)
	params := Params{
		"market": market,
		"start":  start,
		"end":    end,
		"page":   p.Page,
		"limit":  limit,
	}

	var trades []Trade
	if err := c.do(EndpointTrades, params, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// GetActiveOrders retrieves the user's open orders in a market
func (c *Client) GetActiveOrders(market string, p Pagination) ([]Order, error) {
	return c.listOrders(EndpointActiveOrders, market, p)
}

// GetExecutedOrders retrieves the user's executed orders in a market
func (c *Client) GetExecutedOrders(market string, p Pagination) ([]Order, error) {
	return c.listOrders(EndpointExecutedOrders, market, p)
}

func (c *Client) listOrders(ep Endpoint, market string, p Pagination) ([]Order, error) {
	if err := requireMarket(market); err != nil {
		return nil, err
	}

	limit := c.limit(p)
	params := Params{
		"market": market,
		"page":   p.Page,
		"limit":  limit,
	}

	var orders []Order
	if err := c.do(ep, params, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder creates a limit order in a market
func (c *Client) CreateOrder(market string, side OrderSide, amount, price decimal.Decimal) (*Order, error) {
	if err := requireMarket(market); err != nil {
		return nil, err
	}
	if !side.valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown order side %q", side)}
	}
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "amount must be positive"}
	}
	if !price.IsPositive() {
		return nil, &ValidationError{Field: "price", Reason: "price must be positive"}
	}

	params := Params{
		"market": market,
		"type":   string(side),
		"amount": amount,
		"price":  price,
	}

	var order Order
	if err := c.do(EndpointCreateOrder, params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderStatus retrieves order information by order ID
func (c *Client) GetOrderStatus(id string) (*Order, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	var order Order
	if err := c.do(EndpointOrderStatus, Params{"id": id}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels an order
func (c *Client) CancelOrder(id string) (*Order, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	var order Order
	if err := c.do(EndpointCancelOrder, Params{"id": id}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetBalance retrieves the balance of every wallet of the user
func (c *Client) GetBalance() ([]Balance, error) {
	var balances []Balance
	if err := c.do(EndpointBalance, nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// CreatePaymentOrder creates a payment order from the caller-writable
// fields of order and fills in the fields assigned by the exchange on the
// same order
func (c *Client) CreatePaymentOrder(order *PaymentOrder) (*PaymentOrder, error) {
	if order == nil {
		return nil, &ValidationError{Field: "order", Reason: "payment order is required"}
	}
	if err := order.validate(); err != nil {
		return nil, err
	}

	if err := c.do(EndpointCreatePaymentOrder, order.Data(), order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetPaymentOrderStatus retrieves a payment order and its status
func (c *Client) GetPaymentOrderStatus(id string) (*PaymentOrder, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	order := NewPaymentOrder()
	if err := c.do(EndpointPaymentOrderStatus, Params{"id": id}, order); err != nil {
		return nil, err
	}
	return order, nil
}
