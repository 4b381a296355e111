package cryptomkt

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	DefaultTimeout = 30 * time.Second
	userAgent      = "cryptomkt-go/1.0"
)

// Transport performs a single HTTP round trip and returns the raw status
// and body. It must fail, not hang, on network errors.
type Transport interface {
	Send(method, url string, headers map[string]string, body []byte) (int, []byte, error)
}

// RestyTransport is the default Transport, backed by resty.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport with the given timeout and no
// automatic retries.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &RestyTransport{client: client}
}

// Send implements Transport.
func (t *RestyTransport) Send(method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	req := t.client.R().SetHeaders(headers)
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "%s %s", method, url)
	}

	return resp.StatusCode(), resp.Body(), nil
}
