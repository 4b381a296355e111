package cryptomkt

import (
	"fmt"
	"sort"
	"strings"
)

// maskedHeaders are shortened in debug output.
var maskedHeaders = map[string]bool{
	HeaderAPIKey:    true,
	HeaderSignature: true,
}

// DebugRequest renders a request for debug logging with credentials masked.
func DebugRequest(method, url string, headers map[string]string, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Method: %s\n", method)
	fmt.Fprintf(&b, "URL: %s\n", url)

	if len(headers) > 0 {
		b.WriteString("Headers:\n")
		keys := make([]string, 0, len(headers))
		for k := range headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := headers[k]
			if maskedHeaders[k] && len(v) > 10 {
				v = v[:10] + "..."
			}
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}

	if len(body) > 0 {
		fmt.Fprintf(&b, "Body: %s\n", string(body))
	}

	return b.String()
}

// DebugResponse renders a raw response for debug logging.
func DebugResponse(status int, body []byte) string {
	return fmt.Sprintf("Status: %d\nBody: %s\n", status, string(body))
}
