package schnitz

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	// Server defaults
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8888
	DefaultBodyLimit  = 16 * 1024 * 1024 // 16MB, tables get large

	// Client defaults
	DefaultClientTimeout = 30 * time.Second
	DefaultRetryMax      = 3

	HealthRoute = "/health"
)

// Server represents the messaging server
type Server struct {
	App    *fiber.App
	config *ServerConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	BodyLimit int
}

// StdResponse represents the standardized response structure
type StdResponse[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

// RouterHandler is a generic handler function type. Returning a *fiber.Error
// selects the response status; any other error is a 500.
type RouterHandler[Req, Resp any] func(*fiber.Ctx, Req) (Resp, error)
