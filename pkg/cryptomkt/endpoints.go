package cryptomkt

import "net/http"

// Endpoint describes one operation of the exchange API.
type Endpoint struct {
	Name   string
	Path   string
	Method string
	Auth   bool
}

var (
	EndpointMarkets            = Endpoint{Name: "markets", Path: "/market", Method: http.MethodGet}
	EndpointTicker             = Endpoint{Name: "ticker", Path: "/ticker", Method: http.MethodGet}
	EndpointBook               = Endpoint{Name: "book", Path: "/book", Method: http.MethodGet}
	EndpointTrades             = Endpoint{Name: "trades", Path: "/trades", Method: http.MethodGet}
	EndpointActiveOrders       = Endpoint{Name: "activeOrders", Path: "/orders/active", Method: http.MethodGet, Auth: true}
	EndpointExecutedOrders     = Endpoint{Name: "executedOrders", Path: "/orders/executed", Method: http.MethodGet, Auth: true}
	EndpointCreateOrder        = Endpoint{Name: "createOrder", Path: "/orders/create", Method: http.MethodPost, Auth: true}
	EndpointOrderStatus        = Endpoint{Name: "orderStatus", Path: "/orders/status", Method: http.MethodGet, Auth: true}
	EndpointCancelOrder        = Endpoint{Name: "cancelOrder", Path: "/orders/cancel", Method: http.MethodPost, Auth: true}
	EndpointBalance            = Endpoint{Name: "balance", Path: "/balance", Method: http.MethodGet, Auth: true}
	EndpointCreatePaymentOrder = Endpoint{Name: "createPaymentOrder", Path: "/payment/new_order", Method: http.MethodPost, Auth: true}
	EndpointPaymentOrderStatus = Endpoint{Name: "paymentOrderStatus", Path: "/payment/status", Method: http.MethodGet, Auth: true}
)
