// Package gateway implements the per-venue exchange adapters behind the
// domain.Gateway interface. Adapters differ in endpoint layout, symbol
// format, and authentication shape (KuCoin and OKX need a passphrase on top
// of key and secret) but expose the identical capability set to the core.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Credentials is the authentication material for one venue account. Empty
// credentials leave an adapter in quote-only mode: public market data works,
// trading and balance calls return domain.ErrNoCredentials.
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// HasAuth reports whether the credentials can sign private requests.
func (c Credentials) HasAuth() bool {
	return c.Key != "" && c.Secret != ""
}

// restClient is the shared HTTP plumbing for venue adapters.
type restClient struct {
	base   string
	client *http.Client
}

func newRESTClient(base string) *restClient {
	return &restClient{
		base:   base,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// doJSON performs an HTTP request against the venue API and decodes the JSON
// response into out (when out is non-nil). Non-2xx responses are returned as
// errors carrying a truncated body for diagnosis.
func (c *restClient) doJSON(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway: %s %s: status %d: %s", method, path, resp.StatusCode, truncate(data, 256))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

func signHMACSHA256Hex(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func signHMACSHA256Base64(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signHMACSHA512Hex(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func sha512Hex(payload []byte) string {
	sum := sha512.Sum512(payload)
	return hex.EncodeToString(sum[:])
}

// formatQty renders an order quantity without scientific notation.
func formatQty(q float64) string {
	return trimZeros(fmt.Sprintf("%.8f", q))
}

func trimZeros(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
