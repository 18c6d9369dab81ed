package httpapi

import (
	"encoding/json"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/whoop-data-sync/internal/whoop"
)

const defaultLimit = 10

var validate = validator.New()

// RegisterRoutes wires the read-only HTTP handlers into the Fiber app: one
// latest-records endpoint per category plus the live profile passthrough.
func RegisterRoutes(app *fiber.App, service *whoop.Service) {
	v1 := app.Group("/api/v1")

	for _, category := range whoop.Categories {
		v1.Get("/"+string(category), latestHandler(service, category))
	}

	v1.Get("/profile", func(c *fiber.Ctx) error {
		profile, err := service.Profile(c.Context())
		if err != nil {
			log.Error().Err(err).Msg("profile fetch failed")
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch user profile")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(profile)
	})
}

// latestQuery holds the validated query parameters of a latest-records request.
type latestQuery struct {
	Limit int `validate:"min=1,max=100"`
}

func latestHandler(service *whoop.Service, category whoop.Category) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := latestQuery{Limit: defaultLimit}
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
			}
			q.Limit = n
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.Latest(c.Context(), category, q.Limit)
		if err != nil {
			// Never leak storage internals to callers.
			log.Error().Err(err).Str("category", string(category)).Msg("latest records query failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read stored records")
		}

		payloads := make([]json.RawMessage, 0, len(records))
		for _, rec := range records {
			payloads = append(payloads, rec.Payload)
		}
		return c.JSON(payloads)
	}
}
