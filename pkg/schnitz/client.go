package schnitz

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// Client configuration
type ClientConfig struct {
	Timeout         time.Duration
	RetryMax        int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	ZstdCompression bool
}

type Client struct {
	config      *ClientConfig
	restyClient *resty.Client
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

// NewClient creates a new schnitz client. Transport errors and 5xx responses
// are retried; 4xx responses are returned as they are.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = &ClientConfig{RetryMax: DefaultRetryMax, ZstdCompression: true}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.RetryMax < 0 {
		config.RetryMax = 0
	}
	if config.RetryWaitMin == 0 {
		config.RetryWaitMin = 500 * time.Millisecond
	}
	if config.RetryWaitMax == 0 {
		config.RetryWaitMax = 5 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.RetryMax
	retryClient.RetryWaitMin = config.RetryWaitMin
	retryClient.RetryWaitMax = config.RetryWaitMax
	retryClient.HTTPClient.Timeout = config.Timeout
	retryClient.Logger = nil
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Warn().Str("url", req.URL.String()).Int("attempt", attempt).Msg("Retrying request")
		}
	}
	// hand the last response back to resty instead of a generic error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(config.Timeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	client := &Client{
		config:      config,
		restyClient: restyClient,
	}

	if config.ZstdCompression {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		client.encoder = encoder

		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		client.decoder = decoder
	}

	log.Debug().
		Str("timeout", config.Timeout.String()).
		Int("retry_max", config.RetryMax).
		Bool("zstd", config.ZstdCompression).
		Msg("schnitz client initialized")

	return client, nil
}

// Close cleans up client resources
func (c *Client) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Message)
}

// Send posts request to baseURL + RoutePath(request) and decodes the body of
// the StdResponse envelope into response.
func Send[Req, Resp any](ctx context.Context, c *Client, baseURL string, request Req, response *Resp) error {
	if response == nil {
		return fmt.Errorf("invalid response: must be a non-nil pointer")
	}

	endpoint := strings.TrimSuffix(baseURL, "/") + RoutePath(request)

	jsonData, err := sonic.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req := c.restyClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")

	if c.encoder != nil {
		req = req.
			SetHeader("Content-Encoding", "zstd").
			SetHeader("Accept-Encoding", "zstd").
			SetBody(c.encoder.EncodeAll(jsonData, nil))
	} else {
		req = req.SetBody(jsonData)
	}

	log.Trace().
		Str("endpoint", endpoint).
		Int("request_bytes", len(jsonData)).
		Msg("Sending request")

	resp, err := req.Post(endpoint)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	// Handle response decompression if needed (before error checking)
	responseBody := resp.Body()
	if c.decoder != nil && strings.EqualFold(resp.Header().Get("Content-Encoding"), "zstd") {
		decompressed, err := c.decoder.DecodeAll(responseBody, nil)
		if err != nil {
			return fmt.Errorf("failed to decompress response: %w", err)
		}
		responseBody = decompressed
	}

	var envelope StdResponse[Resp]
	if err := sonic.Unmarshal(responseBody, &envelope); err != nil {
		if resp.IsError() {
			return &StatusError{StatusCode: resp.StatusCode(), Message: string(responseBody)}
		}
		return fmt.Errorf("failed to unmarshal StdResponse: %w", err)
	}

	if resp.IsError() || envelope.Error != nil {
		msg := "unknown error"
		if envelope.Error != nil {
			msg = *envelope.Error
		}
		return &StatusError{StatusCode: resp.StatusCode(), Message: msg}
	}

	*response = envelope.Body
	return nil
}
