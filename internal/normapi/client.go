package normapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tensorplex-labs/qnorm/internal/config"
	"github.com/tensorplex-labs/qnorm/internal/quantile"
	"github.com/tensorplex-labs/qnorm/pkg/schnitz"
)

type Client struct {
	transport *schnitz.Client
	baseURL   string
}

func NewClient(cfg *config.ClientEnvConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	transport, err := schnitz.NewClient(&schnitz.ClientConfig{
		Timeout:         cfg.ClientTimeout,
		RetryMax:        cfg.RetryMax,
		ZstdCompression: true,
	})
	if err != nil {
		return nil, err
	}

	return &Client{transport: transport, baseURL: cfg.ServerURL}, nil
}

func (c *Client) Close() {
	c.transport.Close()
}

// Normalize sends t to the server. A 400 answer wraps
// quantile.ErrInvalidInput so callers see the same error locally and
// remotely.
func (c *Client) Normalize(ctx context.Context, t *quantile.Table, policy quantile.MissingPolicy) (*quantile.Table, NormalizeResponse, error) {
	var resp NormalizeResponse
	err := schnitz.Send(ctx, c.transport, c.baseURL, NewNormalizeRequest(t, policy), &resp)
	if err != nil {
		var statusErr *schnitz.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			return nil, NormalizeResponse{}, fmt.Errorf("%w: %s", quantile.ErrInvalidInput, statusErr.Message)
		}
		return nil, NormalizeResponse{}, err
	}

	out, err := resp.Table()
	if err != nil {
		return nil, NormalizeResponse{}, fmt.Errorf("server returned a malformed table: %w", err)
	}
	return out, resp, nil
}
