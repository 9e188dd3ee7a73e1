package schnitz

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/rs/zerolog/log"
)

// NewServer creates a new messaging server
func NewServer(serverConfig *ServerConfig) *Server {
	if serverConfig == nil {
		serverConfig = &ServerConfig{
			Host:      DefaultServerHost,
			Port:      DefaultServerPort,
			BodyLimit: DefaultBodyLimit,
		}
	}
	if serverConfig.Port == 0 {
		serverConfig.Port = DefaultServerPort
	}
	if serverConfig.BodyLimit == 0 {
		serverConfig.BodyLimit = DefaultBodyLimit
	}

	log.Info().
		Any("serverConfig", serverConfig).
		Msg("Server configuration loaded")

	app := fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             serverConfig.BodyLimit,
	})

	app.Use(recover.New()) // add panic recovery
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	server := &Server{
		App:    app,
		config: serverConfig,
	}

	whitelistedRoutes := []string{HealthRoute}
	app.Use(ZstdMiddleware(whitelistedRoutes))

	app.Get(HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(createResponse(HealthResponse{Status: "ok", Timestamp: time.Now().Unix()}, nil))
	})

	return server
}

func fiberErrHandler(ctx *fiber.Ctx, err error) error {
	// Status code defaults to 500
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a *fiber.Error
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	log.Error().
		Err(err).
		Int("status_code", code).
		Str("path", ctx.Path()).
		Str("method", ctx.Method()).
		Msg("Fiber error handler triggered")

	return ctx.Status(code).JSON(createResponse(map[string]interface{}{}, err))
}

// ServeRoute registers a handler for request type Req on POST /<Req type name>
func ServeRoute[Req, Resp any](s *Server, handler RouterHandler[Req, Resp]) {
	var zero Req
	route := RoutePath(zero)

	s.App.Post(route, func(c *fiber.Ctx) error {
		var req Req
		if err := c.BodyParser(&req); err != nil {
			log.Error().
				Err(err).
				Str("route", route).
				Msg("Failed to parse request body")
			var empty Resp
			return c.Status(fiber.StatusBadRequest).
				JSON(createResponse(empty, err))
		}

		resp, err := handler(c, req)
		if err != nil {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			log.Error().
				Err(err).
				Int("status_code", code).
				Str("route", route).
				Msg("Handler returned error")
			var empty Resp
			return c.Status(code).JSON(createResponse(empty, err))
		}

		return c.JSON(createResponse(resp, nil))
	})

	log.Debug().Str("route", route).Msg("Route registered")
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	log.Info().Str("addr", s.Addr()).Msg("Server starting")
	return s.App.Listen(s.Addr())
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.App.ShutdownWithTimeout(timeout)
}
