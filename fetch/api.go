package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/aluiziolira/go-price-sync/config"
)

// APIStrategy fetches rendered HTML through a remote rendering endpoint.
// Each fetch is one independent GET carrying the API key, the target URL, a
// JavaScript-execution flag, and a wait-time hint; retries simply re-issue
// the request, so sessions carry no state.
type APIStrategy struct {
	endpoint string
	apiKey   string
	waitHint time.Duration
	client   *http.Client
}

// NewAPIStrategy builds the remote-rendering strategy from cfg.
func NewAPIStrategy(cfg *config.Config) *APIStrategy {
	return &APIStrategy{
		endpoint: cfg.RenderEndpoint,
		apiKey:   cfg.APIKey,
		waitHint: cfg.WaitHint,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.FetchTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// WithTransport swaps the underlying HTTP transport. Used by tests.
func (s *APIStrategy) WithTransport(rt http.RoundTripper) {
	s.client.Transport = rt
}

// NewSession returns a stateless session backed by the shared client.
func (s *APIStrategy) NewSession() (Session, error) {
	return &apiSession{strategy: s}, nil
}

// Close releases idle connections.
func (s *APIStrategy) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type apiSession struct {
	strategy *APIStrategy
}

func (a *apiSession) Fetch(ctx context.Context, target string) (*Page, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.strategy.endpoint, nil)
	if err != nil {
		return nil, TransportError{Err: fmt.Errorf("build request: %w", err)}
	}
	q := req.URL.Query()
	q.Set("x-api-key", a.strategy.apiKey)
	q.Set("url", target)
	q.Set("browser", "true")
	q.Set("wait_for", strconv.FormatInt(a.strategy.waitHint.Milliseconds(), 10))
	req.URL.RawQuery = q.Encode()

	resp, err := a.strategy.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("rendering api responded %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(fmt.Errorf("read body: %w", err))
	}

	return &Page{
		HTML:    string(body),
		URL:     target,
		Elapsed: time.Since(start),
	}, nil
}

func (a *apiSession) Close() error {
	return nil
}
