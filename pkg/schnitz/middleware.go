package schnitz

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// ZstdMiddleware decompresses zstd request bodies and zstd-compresses
// responses for clients that accept it.
func ZstdMiddleware(whitelistedRoutes []string) fiber.Handler {
	if whitelistedRoutes == nil {
		whitelistedRoutes = []string{HealthRoute}
		log.Debug().
			Any("default", whitelistedRoutes).
			Msg("Whitelisted routes not specified, using default whitelist")
	}

	return func(c *fiber.Ctx) error {
		if slices.Contains(whitelistedRoutes, c.Path()) {
			return c.Next()
		}

		// Handle request decompression
		contentEncoding := c.Get(fiber.HeaderContentEncoding)
		if strings.ToLower(contentEncoding) == "zstd" {
			body := c.Body()
			if len(body) > 0 {
				decoder, err := zstd.NewReader(bytes.NewReader(body))
				if err != nil {
					log.Err(err).Msg("Failed to create zstd decoder")
					return c.Status(fiber.StatusBadRequest).JSON(
						createResponse(
							map[string]interface{}{},
							fmt.Errorf("failed to decompress zstd data: %w", err),
						))
				}
				defer decoder.Close()

				decompressed, err := io.ReadAll(decoder)
				if err != nil {
					log.Err(err).Msg("Failed to decompress request")
					return c.Status(fiber.StatusBadRequest).JSON(
						createResponse(
							map[string]interface{}{},
							fmt.Errorf("failed to decompress zstd data: %w", err),
						))
				}

				c.Request().SetBody(decompressed)
				c.Request().Header.Del(fiber.HeaderContentEncoding)
				log.Debug().
					Int("compressed_size", len(body)).
					Int("original_size", len(decompressed)).
					Msg("Request body decompressed")
			}
		}

		// Process the request
		if err := c.Next(); err != nil {
			return err
		}

		// Handle response compression
		acceptEncoding := c.Get(fiber.HeaderAcceptEncoding)
		if strings.Contains(strings.ToLower(acceptEncoding), "zstd") {
			responseBody := c.Response().Body()
			if len(responseBody) > 0 {
				encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
				if err != nil {
					log.Err(err).Msg("Failed to create zstd encoder")
					return nil // Continue without compression
				}
				defer encoder.Close()

				compressed := encoder.EncodeAll(responseBody, nil)
				c.Response().SetBody(compressed)
				c.Set(fiber.HeaderContentEncoding, "zstd")
				c.Set(fiber.HeaderContentLength, fmt.Sprintf("%d", len(compressed)))

				log.Debug().
					Int("original_size", len(responseBody)).
					Int("compressed_size", len(compressed)).
					Msg("Response body compressed")
			}
		}

		return nil
	}
}
