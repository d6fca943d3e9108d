// Package client probes the portal over plain HTTP and reports operation runs.
package client

import (
	"context"
	stdtls "crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
)

// ProbeResult holds the timing and status of a probe request
type ProbeResult struct {
	URL                  string        `json:"url"`
	StartTime            time.Time     `json:"start_time"`
	DNSDone              time.Duration `json:"dns_done"`
	ConnectDone          time.Duration `json:"connect_done"` // TCP handshake complete
	TLSHandshakeDone     time.Duration `json:"tls_done"`
	GotFirstResponseByte time.Duration `json:"ttfb"`
	TotalDuration        time.Duration `json:"total_duration"`
	StatusCode           int           `json:"status_code"`
	Protocol             string        `json:"protocol"`
	ConnectionReused     bool          `json:"connection_reused"`
	LoginFormFound       bool          `json:"login_form_found"`
	Blocked              bool          `json:"blocked"`
	BlockReason          string        `json:"block_reason,omitempty"`
	BlockedSince         *time.Time    `json:"blocked_since,omitempty"`
	Error                string        `json:"error,omitempty"`
}

// Prober fetches portal pages through a browser-like TLS fingerprint, optionally
// over a SOCKS5 proxy, and records where the time went.
type Prober struct {
	client    *http.Client
	userAgent string
	safety    *SafetyManager
}

// NewProber builds a Prober. proxyURL may be empty.
func NewProber(proxyURL, userAgent string, safety *SafetyManager) (*Prober, error) {
	transport, err := newFingerprintedTransport(proxyURL)
	if err != nil {
		return nil, err
	}
	if safety == nil {
		safety = NewSafetyManager()
	}
	return &Prober{
		client: &http.Client{
			Transport: transport,
			Timeout:   20 * time.Second,
		},
		userAgent: userAgent,
		safety:    safety,
	}, nil
}

// Safety returns the manager the prober reports responses to.
func (p *Prober) Safety() *SafetyManager { return p.safety }

func socksDialer(proxyURL string) (proxy.Dialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}
	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{
			User:     u.User.Username(),
			Password: password,
		}
	}
	return proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
}

func newFingerprintedTransport(proxyURL string) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	dial := dialer.DialContext
	if proxyURL != "" {
		pd, err := socksDialer(proxyURL)
		if err != nil {
			return nil, err
		}
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := pd.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return pd.Dial(network, addr)
		}
	}

	return &http.Transport{
		DialContext: dial,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, _ := net.SplitHostPort(addr)

			conn, err := dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			// HTTP/1.1 only; http.Transport cannot speak h2 over a custom TLS conn.
			uConn := utls.UClient(conn, &utls.Config{
				ServerName: host,
				NextProtos: []string{"http/1.1"},
			}, utls.HelloCustom)

			spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to get utls spec: %w", err)
			}
			for i, ext := range spec.Extensions {
				if alpn, ok := ext.(*utls.ALPNExtension); ok {
					alpn.AlpnProtocols = []string{"http/1.1"}
					spec.Extensions[i] = alpn
				}
			}
			if err := uConn.ApplyPreset(&spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to apply preset: %w", err)
			}

			if err := uConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return uConn, nil
		},
		ForceAttemptHTTP2: false,
	}, nil
}

// Probe GETs target and reports timings, the HTTP status and whether the portal's
// login form was served. Transport failures are reported in the result, not as err.
func (p *Prober) Probe(ctx context.Context, target string) (*ProbeResult, error) {
	var start, dnsDone, connDone, tlsDone, firstByte time.Time
	var reused bool

	trace := &httptrace.ClientTrace{
		DNSDone:              func(_ httptrace.DNSDoneInfo) { dnsDone = time.Now() },
		ConnectDone:          func(_, _ string, _ error) { connDone = time.Now() },
		TLSHandshakeDone:     func(_ stdtls.ConnectionState, _ error) { tlsDone = time.Now() },
		GotFirstResponseByte: func() { firstByte = time.Now() },
		GotConn:              func(info httptrace.GotConnInfo) { reused = info.Reused },
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	start = time.Now()
	resp, err := p.client.Do(req)

	result := &ProbeResult{URL: target, StartTime: start}
	since := func(t time.Time) time.Duration {
		if t.IsZero() {
			return 0
		}
		return t.Sub(start)
	}

	if err != nil {
		result.TotalDuration = time.Since(start)
		result.DNSDone, result.ConnectDone, result.TLSHandshakeDone = since(dnsDone), since(connDone), since(tlsDone)
		result.Error = err.Error()
		if !p.safety.CheckError(err) {
			p.markBlocked(result)
		}
		return result, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	result.TotalDuration = time.Since(start)
	result.DNSDone = since(dnsDone)
	result.ConnectDone = since(connDone)
	result.TLSHandshakeDone = since(tlsDone)
	result.GotFirstResponseByte = since(firstByte)
	result.ConnectionReused = reused
	result.StatusCode = resp.StatusCode
	result.Protocol = resp.Proto
	result.LoginFormFound = HasLoginForm(string(body))

	if !p.safety.CheckStatus(resp.StatusCode) {
		p.markBlocked(result)
	}
	return result, nil
}

func (p *Prober) markBlocked(result *ProbeResult) {
	since := p.safety.Since()
	result.Blocked = true
	result.BlockReason = p.safety.Reason()
	result.BlockedSince = &since
}

// HasLoginForm reports whether markup contains the portal's id and password inputs.
func HasLoginForm(markup string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return doc.Find(`input#id`).Length() > 0 && doc.Find(`input#pw`).Length() > 0
}
