package normapi

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/qnorm/internal/quantile"
	"github.com/tensorplex-labs/qnorm/internal/utils/redis"
	"github.com/tensorplex-labs/qnorm/pkg/schnitz"
)

type Service struct {
	policy   quantile.MissingPolicy
	workers  int
	cache    redis.RedisInterface
	cacheTTL time.Duration
}

type ServiceOption func(*Service)

func WithDefaultPolicy(policy quantile.MissingPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

func WithWorkers(workers int) ServiceOption {
	return func(s *Service) {
		s.workers = workers
	}
}

// WithCache stores successful responses in cache for ttl. A zero ttl keeps
// them until evicted.
func WithCache(cache redis.RedisInterface, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		policy:  quantile.PolicyError,
		workers: quantile.DefaultWorkers(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Normalize runs one request. Rejected input wraps quantile.ErrInvalidInput.
func (s *Service) Normalize(ctx context.Context, req NormalizeRequest) (NormalizeResponse, error) {
	policy := s.policy
	if req.MissingPolicy != "" {
		parsed, err := quantile.ParseMissingPolicy(req.MissingPolicy)
		if err != nil {
			return NormalizeResponse{}, err
		}
		policy = parsed
	}
	req.MissingPolicy = string(policy)

	key := s.lookup(ctx, req)
	if key.hit != nil {
		return *key.hit, nil
	}

	table, err := req.Table()
	if err != nil {
		return NormalizeResponse{}, err
	}

	res, err := quantile.NewNormalizer(
		quantile.WithMissingPolicy(policy),
		quantile.WithWorkers(s.workers),
	).NormalizeWithReport(table)
	if err != nil {
		return NormalizeResponse{}, err
	}

	resp := newNormalizeResponse(res)
	log.Info().
		Int("rows_in", res.Report.RowsIn).
		Int("rows_out", res.Report.RowsOut).
		Int("cols", len(resp.ColIDs)).
		Str("policy", string(policy)).
		Dur("elapsed", res.Report.Elapsed).
		Msg("Normalized table")

	s.store(ctx, key.name, resp)
	return resp, nil
}

type cacheLookup struct {
	name string
	hit  *NormalizeResponse
}

// lookup never fails a request: cache problems are logged and treated as a
// miss.
func (s *Service) lookup(ctx context.Context, req NormalizeRequest) cacheLookup {
	if s.cache == nil {
		return cacheLookup{}
	}

	key, err := redis.CacheKey(req)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to derive cache key")
		return cacheLookup{}
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache get failed")
		return cacheLookup{name: key}
	}
	if raw == "" {
		log.Debug().Str("key", key).Msg("Cache miss")
		return cacheLookup{name: key}
	}

	var resp NormalizeResponse
	if err := sonic.UnmarshalString(raw, &resp); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return cacheLookup{name: key}
	}
	resp.Cached = true
	log.Debug().Str("key", key).Msg("Cache hit")
	return cacheLookup{name: key, hit: &resp}
}

func (s *Service) store(ctx context.Context, key string, resp NormalizeResponse) {
	if s.cache == nil || key == "" {
		return
	}

	raw, err := sonic.MarshalString(resp)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode response for cache")
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache set failed")
	}
}

// Register serves the service on POST /NormalizeRequest.
func (s *Service) Register(server *schnitz.Server) {
	schnitz.ServeRoute(server, func(c *fiber.Ctx, req NormalizeRequest) (NormalizeResponse, error) {
		resp, err := s.Normalize(c.UserContext(), req)
		if errors.Is(err, quantile.ErrInvalidInput) {
			return resp, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return resp, err
	})
}
