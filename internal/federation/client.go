package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/infra/buildinfo"
	"github.com/hactazia/reileta/internal/storage"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
)

// DefaultTimeout bounds a single outbound federation request.
const DefaultTimeout = 10 * time.Second

// Client issues requests against peer servers' HTTP gateways. It
// speaks the envelope format, authenticates with the per-peer
// challenge secret, and follows at most one gateway redirect per
// call.
type Client struct {
	http    *http.Client
	servers storage.ServerStore
	address string
	logger  logger.Logger
	metrics *metric.Registry
}

// NewClient creates a federation client. address is this node's own
// public address, used in the User-Agent.
func NewClient(servers storage.ServerStore, address string, log logger.Logger, metrics *metric.Registry) *Client {
	if log == nil {
		log = logger.Default()
	}
	return &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		servers: servers,
		address: address,
		logger:  log,
		metrics: metrics,
	}
}

// WithHTTPClient substitutes the underlying HTTP client, mainly for
// tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Fetch performs method path against the peer's HTTP gateway and
// returns the decoded envelope. A non-nil body is sent as JSON.
//
// A response carrying the retry-with-new-gateway error adopts the
// announced gateways and retries exactly once; a second redirect in
// the same call fails.
func (c *Client) Fetch(ctx context.Context, server *domain.ServerRecord, method, path string, body any) (*Envelope, error) {
	return c.fetch(ctx, server, method, path, body, false)
}

func (c *Client) fetch(ctx context.Context, server *domain.ServerRecord, method, path string, body any, retried bool) (*Envelope, error) {
	env, err := c.do(ctx, server, method, path, body)
	if err != nil {
		c.countFetch("error")
		return nil, err
	}

	if env.Redirect != nil {
		if err := c.adoptGateways(ctx, server, env.Redirect); err != nil {
			c.countFetch("bad_redirect")
			return nil, err
		}
	}

	if env.Error != nil {
		// The retry-code error re-invokes once whether or not the peer
		// announced replacement gateways; adoption already happened
		// above when it did.
		if env.Error.Is(domain.ErrRetryWithNewGateway) && !retried {
			if c.metrics != nil {
				c.metrics.FederationRetries.Inc()
			}
			c.logger.Debug("retrying with new gateway",
				"server", server.Address, "gateway", server.Gateways.HTTP)
			return c.fetch(ctx, server, method, path, body, true)
		}
		c.countFetch("peer_error")
		return nil, env.Error
	}

	if len(env.Data) == 0 {
		c.countFetch("no_data")
		return nil, domain.ErrNoDataFromServer
	}

	c.countFetch("ok")
	return env, nil
}

// do performs a single request without redirect handling.
func (c *Client) do(ctx context.Context, server *domain.ServerRecord, method, path string, body any) (*Envelope, error) {
	gateway, err := server.HTTPGatewayURL()
	if err != nil || gateway.Host == "" {
		return nil, domain.ErrBadRedirectionFromServer.WithDetails(server.Gateways.HTTP)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, domain.ErrInternalError.WithCause(err)
		}
		reader = bytes.NewReader(raw)
	}

	target := strings.TrimSuffix(gateway.String(), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, domain.ErrInternalError.WithCause(err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent(c.address))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if server.Challenge != "" {
		req.Header.Set("Authorization", "Challenge "+server.Challenge)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.ErrNoResponseFromServer.WithDetails(server.Address).WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.ErrNoResponseFromServer.WithDetails(server.Address).WithCause(err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, domain.ErrBadDataFromServer.WithDetails(server.Address).WithCause(err)
	}
	if env.Request == "" && env.Data == nil && env.Error == nil {
		return nil, domain.ErrBadStructureFromServer.WithDetails(server.Address)
	}
	return &env, nil
}

// adoptGateways validates and persists gateways a peer redirected us
// to.
func (c *Client) adoptGateways(ctx context.Context, server *domain.ServerRecord, redirect *Redirect) error {
	for _, raw := range []string{redirect.HTTP, redirect.WS} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || u.Scheme == "" {
			return domain.ErrBadRedirectionFromServer.WithDetails(raw)
		}
	}
	server.Gateways = domain.Gateways{HTTP: redirect.HTTP, WS: redirect.WS}
	if c.servers != nil {
		if err := c.servers.Put(ctx, server); err != nil {
			return err
		}
	}
	c.logger.Info("adopted peer gateways",
		"server", server.Address, "http", redirect.HTTP, "ws", redirect.WS)
	return nil
}

func (c *Client) countFetch(outcome string) {
	if c.metrics != nil {
		c.metrics.FederationFetches.WithLabelValues(outcome).Inc()
	}
}

// FetchData performs a fetch and decodes the payload in one step.
func FetchData[T any](ctx context.Context, c *Client, server *domain.ServerRecord, method, path string, body any) (*T, error) {
	env, err := c.Fetch(ctx, server, method, path, body)
	if err != nil {
		var em *domain.ErrorMessage
		if errors.As(err, &em) {
			return nil, em
		}
		return nil, err
	}
	return DecodeData[T](env)
}
