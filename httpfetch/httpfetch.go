// Package httpfetch provides a Chrome-fingerprinted HTTP client used as a
// lightweight pre-navigation probe: it lets the redirect detector observe a
// response's redirect chain and status code without paying for a full
// browser navigation.
package httpfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	tls "github.com/refraction-networking/utls"
)

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1, computed once and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// Result is a probe's outcome: the final response's status and URL plus
// every hop observed along the way.
type Result struct {
	StatusCode int
	FinalURL   string
	Chain      []string // one entry per intermediate redirect hop, in order
}

// Client performs Chrome-fingerprinted GET probes. Probe serializes
// access internally because CheckRedirect's chain-recording closure is
// shared client-wide; callers that want concurrent probes should use one
// Client per goroutine (httpfetch.New is cheap).
type Client struct {
	mu    sync.Mutex
	http  *http.Client
	chain []string
}

// New builds a probe client with a Chrome-like TLS ClientHello (ALPN locked
// to http/1.1, since utls cannot negotiate HTTP/2 through Go's transport).
func New(timeout time.Duration) *Client {
	c := &Client{}
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("httpfetch: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}

	c.http = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			c.chain = append(c.chain, via[len(via)-1].URL.String())
			if len(via) >= 10 {
				return fmt.Errorf("httpfetch: too many redirects")
			}
			return nil
		},
	}
	return c
}

// Probe issues a GET against url and reports the final status, URL, and any
// redirect hops observed. Errors (DNS, timeout, connection refused) are
// returned as-is; the caller treats them as "no usable preflight data",
// never as evidence either way about redirects.
func (c *Client) Probe(ctx context.Context, url string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chain = nil

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return &Result{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Chain:      c.chain,
	}, nil
}
