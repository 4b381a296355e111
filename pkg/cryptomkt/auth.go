package cryptomkt

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	HeaderAPIKey    = "X-MKT-APIKEY"
	HeaderSignature = "X-MKT-SIGNATURE"
	HeaderTimestamp = "X-MKT-TIMESTAMP"
)

// Params holds the scalar parameters of a request, keyed by name.
type Params map[string]interface{}

// compact drops nil and empty string values.
func (p Params) compact() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// sortedKeys returns the parameter names in ascending order.
func (p Params) sortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings returns every parameter rendered with FormatValue.
func (p Params) Strings() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = FormatValue(v)
	}
	return out
}

// FormatValue renders a parameter value the way it is sent and signed.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		if t {
			return "1"
		}
		return ""
	case decimal.Decimal:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// CanonicalMessage builds the message that is signed for a request:
// timestamp + path + parameter values in ascending key order.
func CanonicalMessage(timestamp int64, path string, params Params) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(path)
	for _, k := range params.sortedKeys() {
		b.WriteString(FormatValue(params[k]))
	}
	return b.String()
}

// Sign generates the hex encoded HMAC-SHA384 signature for a request.
func Sign(secret string, timestamp int64, path string, params Params) string {
	mac := hmac.New(sha512.New384, []byte(secret))
	mac.Write([]byte(CanonicalMessage(timestamp, path, params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// UnixTimestamp returns t as UTC Unix seconds.
func UnixTimestamp(t time.Time) int64 {
	return t.UTC().Unix()
}

// authHeaders returns the authentication headers for a request signed at
// the given timestamp.
func authHeaders(apiKey, secret string, timestamp int64, path string, params Params) map[string]string {
	return map[string]string{
		HeaderAPIKey:    apiKey,
		HeaderSignature: Sign(secret, timestamp, path, params),
		HeaderTimestamp: strconv.FormatInt(timestamp, 10),
	}
}
