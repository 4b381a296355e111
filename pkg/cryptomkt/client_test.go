package cryptomkt

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentRequest struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
}

type fakeTransport struct {
	status   int
	body     string
	err      error
	requests []sentRequest
}

func (f *fakeTransport) Send(method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	f.requests = append(f.requests, sentRequest{method: method, url: url, headers: headers, body: body})
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, []byte(f.body), nil
}

func (f *fakeTransport) last(t *testing.T) sentRequest {
	t.Helper()
	require.NotEmpty(t, f.requests, "no request was sent")
	return f.requests[len(f.requests)-1]
}

func okBody(data string) string {
	return `{"status":{"code":200,"message":"ok"},"data":` + data + `}`
}

func fixedClock() time.Time {
	return time.Unix(1500000000, 0).In(time.FixedZone("CLT", -3*60*60))
}

func newTestClient(apiKey, apiSecret string, ft *fakeTransport) *Client {
	return NewClient(apiKey, apiSecret,
		WithBaseURL("https://api.example.com/"),
		WithTransport(ft),
		WithClock(fixedClock),
	)
}

func query(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query()
}

func TestClient_GetMarkets(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`["ETHCLP","ETHARS","BTCCLP"]`)}
	c := newTestClient("", "", ft)

	markets, err := c.GetMarkets()
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHCLP", "ETHARS", "BTCCLP"}, markets)

	req := ft.last(t)
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "https://api.example.com/v1/market", req.url)
	assert.Empty(t, req.headers)
	assert.Nil(t, req.body)
}

func TestClient_GetTicker(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[{
		"high":"250000","volume":"1.5","low":"240000","ask":"249000",
		"timestamp":"2017-10-13T16:00:00.000000","bid":"248000",
		"last_price":"248500","market":"ETHCLP"}]`)}
	c := newTestClient("", "", ft)

	tickers, err := c.GetTicker("ETHCLP")
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Equal(t, "ETHCLP", tickers[0].Market)
	assert.True(t, tickers[0].LastPrice.Equal(decimal.NewFromInt(248500)))
	assert.Equal(t, "ETHCLP", query(t, ft.last(t).url).Get("market"))

	_, err = c.GetTicker("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/ticker", ft.last(t).url)
}

func TestClient_GetBook_DefaultPagination(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[{"price":"248000","amount":"0.5","timestamp":"2017-10-13T16:00:00"}]`)}
	c := newTestClient("", "", ft)

	book, err := c.GetBook("ETHCLP", OrderSideBuy, Pagination{})
	require.NoError(t, err)
	require.Len(t, book, 1)
	assert.True(t, book[0].Amount.Equal(decimal.RequireFromString("0.5")))

	q := query(t, ft.last(t).url)
	assert.Equal(t, "ETHCLP", q.Get("market"))
	assert.Equal(t, "buy", q.Get("type"))
	assert.Equal(t, "0", q.Get("page"))
	assert.Equal(t, "100", q.Get("limit"))
}

func TestClient_GetBook_ForwardsPagination(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[]`)}
	c := newTestClient("", "", ft)

	_, err := c.GetBook("ETHCLP", OrderSideSell, Pagination{Page: 3, Limit: 500})
	require.NoError(t, err)

	q := query(t, ft.last(t).url)
	assert.Equal(t, "sell", q.Get("type"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "500", q.Get("limit"))
}

func TestClient_DefaultLimitOption(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[]`)}
	c := NewClient("", "", WithTransport(ft), WithDefaultLimit(20))

	_, err := c.GetBook("ETHCLP", OrderSideBuy, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, "20", query(t, ft.last(t).url).Get("limit"))
}

func TestClient_GetTrades_DateDefaults(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[]`)}
	c := newTestClient("", "", ft)

	_, err := c.GetTrades("ETHCLP", "", "", Pagination{})
	require.NoError(t, err)

	q := query(t, ft.last(t).url)
	// the clock reads 2017-07-13 23:40 in Santiago, which is already the 14th in UTC
	assert.Equal(t, "2017-07-14", q.Get("start"))
	assert.Equal(t, "2017-07-14", q.Get("end"))
	assert.Equal(t, "0", q.Get("page"))
	assert.Equal(t, "100", q.Get("limit"))

	_, err = c.GetTrades("ETHCLP", "2024-01-01", "", Pagination{})
	require.NoError(t, err)

	q = query(t, ft.last(t).url)
	assert.Equal(t, "2024-01-01", q.Get("start"))
	assert.Equal(t, "2024-01-01", q.Get("end"))

	_, err = c.GetTrades("ETHCLP", "2024-01-01", "2024-01-31", Pagination{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", query(t, ft.last(t).url).Get("end"))
}

func TestClient_CreateOrder_SignsBody(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`{
		"status":"active","created_at":"2017-07-14T02:40:00","amount":{"original":"0.01","remaining":"0.01"},
		"execution_price":null,"price":"1000","type":"buy","id":"M107441","market":"ETHCLP","updated_at":"2017-07-14T02:40:00"}`)}
	c := newTestClient("my-key", testSecret, ft)

	order, err := c.CreateOrder("ETHCLP", OrderSideBuy, decimal.RequireFromString("0.01"), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "M107441", order.ID)
	assert.Equal(t, OrderSideBuy, order.Side)
	assert.True(t, order.Amount.Remaining.Equal(decimal.RequireFromString("0.01")))

	req := ft.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "https://api.example.com/v1/orders/create", req.url)
	assert.Equal(t, "my-key", req.headers[HeaderAPIKey])
	assert.Equal(t, "1500000000", req.headers[HeaderTimestamp])
	assert.Equal(t, createOrderSignature, req.headers[HeaderSignature])

	var body map[string]string
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, map[string]string{"market": "ETHCLP", "type": "buy", "amount": "0.01", "price": "1000"}, body)
}

func TestClient_AuthenticatedGet_SignsPathOnly(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[{"available":"120.5","wallet":"CLP","balance":"120.5"}]`)}
	c := newTestClient("my-key", testSecret, ft)

	balances, err := c.GetBalance()
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "CLP", balances[0].Wallet)

	req := ft.last(t)
	assert.Equal(t, "https://api.example.com/v1/balance", req.url)
	assert.Equal(t, balanceSignature, req.headers[HeaderSignature])

	ft.body = okBody(`{"id":"M107441","market":"ETHCLP"}`)
	order, err := c.GetOrderStatus("M107441")
	require.NoError(t, err)
	assert.Equal(t, "M107441", order.ID)
	req = ft.last(t)
	assert.Equal(t, "M107441", query(t, req.url).Get("id"))
	assert.Equal(t, Sign(testSecret, 1500000000, "/v1/orders/status", nil), req.headers[HeaderSignature])
}

func TestClient_CancelOrder(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`{"id":"M107441","status":"cancelled","market":"ETHCLP"}`)}
	c := newTestClient("my-key", testSecret, ft)

	order, err := c.CancelOrder("M107441")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", order.Status)

	req := ft.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.JSONEq(t, `{"id":"M107441"}`, string(req.body))
	assert.Equal(t, Sign(testSecret, 1500000000, "/v1/orders/cancel", Params{"id": "M107441"}), req.headers[HeaderSignature])
}

func TestClient_ListOrders(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[{"id":"M1","type":"sell"},{"id":"M2","type":"buy"}]`)}
	c := newTestClient("my-key", testSecret, ft)

	active, err := c.GetActiveOrders("ETHCLP", Pagination{})
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.Contains(t, ft.last(t).url, "/v1/orders/active?")

	_, err = c.GetExecutedOrders("ETHCLP", Pagination{Limit: 50})
	require.NoError(t, err)
	req := ft.last(t)
	assert.Contains(t, req.url, "/v1/orders/executed?")
	assert.Equal(t, "50", query(t, req.url).Get("limit"))
}

func TestClient_AuthError(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		secret string
	}{
		{name: "no credentials"},
		{name: "no secret", key: "my-key"},
		{name: "no key", secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{status: http.StatusOK, body: okBody(`[]`)}
			c := newTestClient(tt.key, tt.secret, ft)

			_, err := c.GetBalance()
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, "balance", authErr.Endpoint)
			assert.Empty(t, ft.requests)
		})
	}
}

func TestClient_ValidationError(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`[]`)}
	c := newTestClient("my-key", testSecret, ft)

	calls := map[string]func() error{
		"book without market": func() error { _, err := c.GetBook("", OrderSideBuy, Pagination{}); return err },
		"book with bad side":  func() error { _, err := c.GetBook("ETHCLP", "both", Pagination{}); return err },
		"trades":              func() error { _, err := c.GetTrades(" ", "", "", Pagination{}); return err },
		"active orders":       func() error { _, err := c.GetActiveOrders("", Pagination{}); return err },
		"create order side": func() error {
			_, err := c.CreateOrder("ETHCLP", "hold", decimal.NewFromInt(1), decimal.NewFromInt(1))
			return err
		},
		"create order amount": func() error {
			_, err := c.CreateOrder("ETHCLP", OrderSideBuy, decimal.Zero, decimal.NewFromInt(1))
			return err
		},
		"order status":   func() error { _, err := c.GetOrderStatus(""); return err },
		"cancel order":   func() error { _, err := c.CancelOrder(""); return err },
		"payment status": func() error { _, err := c.GetPaymentOrderStatus(""); return err },
		"nil payment":    func() error { _, err := c.CreatePaymentOrder(nil); return err },
		"payment missing receiver": func() error {
			_, err := c.CreatePaymentOrder(NewPaymentOrder().SetToReceive(decimal.NewFromInt(10000)).SetToReceiveCurrency("CLP"))
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var valErr *ValidationError
			require.ErrorAs(t, call(), &valErr)
		})
	}
	assert.Empty(t, ft.requests)
}

func TestClient_StatusGate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{
			name:    "error with data",
			body:    `{"status":{"code":400,"message":"invalid market"},"data":["ETHCLP"]}`,
			code:    400,
			message: "invalid market",
		},
		{
			name:    "error without data",
			body:    `{"status":{"code":401,"message":"invalid signature"}}`,
			code:    401,
			message: "invalid signature",
		},
		{
			name:    "top level message",
			body:    `{"status":{"code":500},"message":"internal error"}`,
			code:    500,
			message: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{status: http.StatusOK, body: tt.body}
			c := newTestClient("", "", ft)

			_, err := c.GetMarkets()
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "markets", apiErr.Endpoint)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestClient_SuccessWithoutData(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: `{"status":{"code":200,"message":"ok"}}`}
	c := newTestClient("", "", ft)

	markets, err := c.GetMarkets()
	require.NoError(t, err)
	assert.Empty(t, markets)
}

func TestClient_DecodingError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not json", status: http.StatusBadGateway, body: "<html>bad gateway</html>"},
		{name: "no envelope", status: http.StatusOK, body: `["ETHCLP"]`},
		{name: "no status", status: http.StatusOK, body: `{"data":["ETHCLP"]}`},
		{name: "data shape", status: http.StatusOK, body: okBody(`{"market":"ETHCLP"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{status: tt.status, body: tt.body}
			c := newTestClient("", "", ft)

			_, err := c.GetMarkets()
			var decErr *DecodingError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, tt.status, decErr.HTTPStatus)

			var apiErr *APIError
			assert.False(t, errors.As(err, &apiErr))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	cause := errors.New("dial tcp: lookup api.example.com: no such host")
	ft := &fakeTransport{err: cause}
	c := newTestClient("", "", ft)

	_, err := c.GetTicker("ETHCLP")
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "ticker", trErr.Endpoint)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, ft.requests, 1, "transport errors are not retried")
}

func TestClient_CreatePaymentOrder(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`{
		"id":"P13433","external_id":"ABC123","status":0,"to_receive":"10000","to_receive_currency":"CLP",
		"expected_amount":"0.0516","expected_currency":"ETH","deposit_address":"0xabc",
		"created_at":"2017-10-13T12:00:00.000000","updated_at":"2017-10-13T12:00:00.000000",
		"qr":"https://www.cryptomkt.com/qr/P13433","payment_url":"https://www.cryptomkt.com/pay/P13433","obs":""}`)}
	c := newTestClient("my-key", testSecret, ft)

	order := NewPaymentOrder().
		SetToReceive(decimal.NewFromInt(10000)).
		SetToReceiveCurrency("CLP").
		SetPaymentReceiver("merchant@example.com").
		SetExternalID("ABC123").
		SetCallbackURL("https://example.com/notify")

	got, err := c.CreatePaymentOrder(order)
	require.NoError(t, err)
	assert.Same(t, order, got)
	assert.Equal(t, "P13433", order.ID())
	assert.Equal(t, "0xabc", order.DepositAddress())
	assert.Equal(t, "https://www.cryptomkt.com/pay/P13433", order.URL())

	msg, err := order.StatusMessage()
	require.NoError(t, err)
	assert.Equal(t, "awaiting payment", msg)

	req := ft.last(t)
	assert.Equal(t, "https://api.example.com/v1/payment/new_order", req.url)
	assert.JSONEq(t, `{
		"to_receive":"10000","to_receive_currency":"CLP","payment_receiver":"merchant@example.com",
		"external_id":"ABC123","callback_url":"https://example.com/notify"}`, string(req.body))
	assert.Equal(t,
		Sign(testSecret, 1500000000, "/v1/payment/new_order", order.Data()),
		req.headers[HeaderSignature])
}

func TestClient_GetPaymentOrderStatus(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`{
		"id":"P13433","status":"3","to_receive":"10000","to_receive_currency":"CLP",
		"payment_receiver":"merchant@example.com","created_at":"2017-10-13T12:00:00"}`)}
	c := newTestClient("my-key", testSecret, ft)

	order, err := c.GetPaymentOrderStatus("P13433")
	require.NoError(t, err)
	assert.Equal(t, "P13433", query(t, ft.last(t).url).Get("id"))
	assert.Equal(t, "CLP", order.ToReceiveCurrency())

	status, err := order.Status()
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusSuccess, status)
}

func TestClient_GetPaymentOrderStatus_UnknownStatus(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: okBody(`{"id":"P13433","status":7}`)}
	c := newTestClient("my-key", testSecret, ft)

	_, err := c.GetPaymentOrderStatus("P13433")
	var decErr *DecodingError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "paymentOrderStatus", decErr.Endpoint)
}
