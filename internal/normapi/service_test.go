package normapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tensorplex-labs/qnorm/internal/config"
	"github.com/tensorplex-labs/qnorm/internal/quantile"
	"github.com/tensorplex-labs/qnorm/pkg/schnitz"
)

type memoryCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
	failSet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", errors.New("cache down")
	}
	return m.data[key], nil
}

func (m *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("cache down")
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }
func (m *memoryCache) Close() error               { return nil }

func ptr(v float64) *float64 { return &v }

func scenarioRequest() NormalizeRequest {
	return NormalizeRequest{
		RowIDs: []string{"r1", "r2", "r3"},
		ColIDs: []string{"A", "B"},
		Columns: [][]*float64{
			{ptr(5), ptr(1), ptr(2)},
			{ptr(4), ptr(1), ptr(4)},
		},
	}
}

type ServiceTestSuite struct {
	suite.Suite
	cache   *memoryCache
	service *Service
}

func (s *ServiceTestSuite) SetupTest() {
	s.cache = newMemoryCache()
	s.service = NewService(WithWorkers(2), WithCache(s.cache, time.Minute))
}

func (s *ServiceTestSuite) TestNormalize() {
	resp, err := s.service.Normalize(context.Background(), scenarioRequest())
	s.Require().NoError(err)

	s.Equal([]string{"r1", "r2", "r3"}, resp.RowIDs)
	s.Equal([]string{"A", "B"}, resp.ColIDs)
	s.InDeltaSlice([]float64{4.5, 1, 3}, resp.Columns[0], 1e-9)
	s.InDeltaSlice([]float64{3.75, 1, 3.75}, resp.Columns[1], 1e-9)
	s.Equal([]float64{1, 3, 4.5}, resp.Reference)
	s.False(resp.Cached)
}

func (s *ServiceTestSuite) TestCacheHit() {
	first, err := s.service.Normalize(context.Background(), scenarioRequest())
	s.Require().NoError(err)
	s.Len(s.cache.data, 1)
	for _, ttl := range s.cache.ttls {
		s.Equal(time.Minute, ttl)
	}

	second, err := s.service.Normalize(context.Background(), scenarioRequest())
	s.Require().NoError(err)
	s.True(second.Cached)
	s.Equal(first.Columns, second.Columns)

	// an explicit policy equal to the default shares the cache entry
	req := scenarioRequest()
	req.MissingPolicy = "error"
	third, err := s.service.Normalize(context.Background(), req)
	s.Require().NoError(err)
	s.True(third.Cached)
}

func (s *ServiceTestSuite) TestCacheFailuresDoNotFailRequests() {
	s.cache.failGet = true
	s.cache.failSet = true

	resp, err := s.service.Normalize(context.Background(), scenarioRequest())
	s.Require().NoError(err)
	s.False(resp.Cached)
	s.Empty(s.cache.data)
}

func (s *ServiceTestSuite) TestCorruptCacheEntryIsIgnored() {
	_, err := s.service.Normalize(context.Background(), scenarioRequest())
	s.Require().NoError(err)
	for k := range s.cache.data {
		s.cache.data[k] = "{not json"
	}

	resp, err := s.service.Normalize(context.Background(), scenarioRequest())
	s.Require().NoError(err)
	s.False(resp.Cached)
	s.InDeltaSlice([]float64{3.75, 1, 3.75}, resp.Columns[1], 1e-9)
}

func (s *ServiceTestSuite) TestMissingValuePolicies() {
	req := scenarioRequest()
	req.Columns[1][1] = nil

	_, err := s.service.Normalize(context.Background(), req)
	s.ErrorIs(err, quantile.ErrInvalidInput)
	s.Empty(s.cache.data)

	req.MissingPolicy = "drop"
	resp, err := s.service.Normalize(context.Background(), req)
	s.Require().NoError(err)
	s.Equal([]string{"r1", "r3"}, resp.RowIDs)
	s.Equal([]string{"r2"}, resp.DroppedRows)

	req.MissingPolicy = "ignore"
	_, err = s.service.Normalize(context.Background(), req)
	s.ErrorIs(err, quantile.ErrInvalidInput)
}

func (s *ServiceTestSuite) TestDefaultPolicy() {
	service := NewService(WithDefaultPolicy(quantile.PolicyDrop))
	req := scenarioRequest()
	req.Columns[0][0] = nil

	resp, err := service.Normalize(context.Background(), req)
	s.Require().NoError(err)
	s.Equal([]string{"r2", "r3"}, resp.RowIDs)
}

func (s *ServiceTestSuite) TestMalformedTable() {
	req := scenarioRequest()
	req.Columns[1] = req.Columns[1][:2]

	_, err := s.service.Normalize(context.Background(), req)
	s.ErrorIs(err, quantile.ErrInvalidInput)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestRegister(t *testing.T) {
	server := schnitz.NewServer(nil)
	NewService().Register(server)

	post := func(req NormalizeRequest) (int, schnitz.StdResponse[NormalizeResponse]) {
		body, err := sonic.Marshal(req)
		require.NoError(t, err)
		httpReq := httptest.NewRequest("POST", "/NormalizeRequest", bytes.NewReader(body))
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := server.App.Test(httpReq)
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)

		var out schnitz.StdResponse[NormalizeResponse]
		require.NoError(t, sonic.Unmarshal(raw, &out))
		return resp.StatusCode, out
	}

	status, out := post(scenarioRequest())
	assert.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, out.Error)
	assert.InDeltaSlice(t, []float64{4.5, 1, 3}, out.Body.Columns[0], 1e-9)

	bad := scenarioRequest()
	bad.Columns[0][2] = nil
	status, out = post(bad)
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, out.Error)
	assert.Contains(t, *out.Error, "invalid input")
}

func TestRequestRoundTrip(t *testing.T) {
	table, err := quantile.NewTable(
		[]string{"r1", "r2"},
		[]string{"A"},
		[][]float64{{quantile.Missing, 2}},
	)
	require.NoError(t, err)

	req := NewNormalizeRequest(table, quantile.PolicyDrop)
	assert.Equal(t, "drop", req.MissingPolicy)
	assert.Nil(t, req.Columns[0][0])
	require.NotNil(t, req.Columns[0][1])
	assert.Equal(t, 2.0, *req.Columns[0][1])

	back, err := req.Table()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, back.MissingRows())
	assert.Equal(t, table.RowIDs(), back.RowIDs())
}

func TestClientAgainstServer(t *testing.T) {
	server := schnitz.NewServer(nil)
	NewService().Register(server)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.App.Listener(ln) }()
	t.Cleanup(func() { _ = server.Shutdown(time.Second) })

	client, err := NewClient(&config.ClientEnvConfig{
		ServerURL:     "http://" + ln.Addr().String(),
		ClientTimeout: 5 * time.Second,
		RetryMax:      1,
	})
	require.NoError(t, err)
	defer client.Close()

	table, err := quantile.NewTable(
		[]string{"r1", "r2", "r3"},
		[]string{"A", "B"},
		[][]float64{{5, 1, 2}, {4, quantile.Missing, 4}},
	)
	require.NoError(t, err)

	_, _, err = client.Normalize(context.Background(), table, quantile.PolicyError)
	assert.ErrorIs(t, err, quantile.ErrInvalidInput)

	out, resp, err := client.Normalize(context.Background(), table, quantile.PolicyDrop)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3"}, out.RowIDs())
	assert.Equal(t, []string{"r2"}, resp.DroppedRows)
	assert.InDeltaSlice(t, []float64{4.5, 3}, out.Column(0), 1e-9)
	assert.InDeltaSlice(t, []float64{3.75, 3.75}, out.Column(1), 1e-9)
}

func TestNewClientNilConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)
}
