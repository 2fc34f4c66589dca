package httpapi

import (
	"errors"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/dashboard"
	"github.com/i474232898/weather-lookup/internal/session"
	"github.com/i474232898/weather-lookup/internal/units"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// Session is the part of *session.Session the HTTP layer reads and drives.
type Session interface {
	Current() session.Snapshot
	Submit(city string) (<-chan struct{}, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, sess Session) {
	v1 := app.Group("/api/v1")

	v1.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(sess.Current())
	})

	v1.Post("/session/query", func(c *fiber.Ctx) error {
		var req queryRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if _, err := sess.Submit(req.City); err != nil {
			switch {
			case errors.Is(err, weather.ErrEmptyCity):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, session.ErrClosed):
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to submit query")
		}

		return c.Status(fiber.StatusAccepted).JSON(sess.Current())
	})

	v1.Get("/session/view", func(c *fiber.Ctx) error {
		unit, err := units.ParseUnit(c.Query("unit"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(dashboard.Render(sess.Current(), unit))
	})

	v1.Get("/convert", func(c *fiber.Ctx) error {
		celsius, err := parseCelsius(c.Query("celsius"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{
			"celsius":    celsius,
			"fahrenheit": units.ToFahrenheit(celsius),
		})
	})
}

// ErrorHandler renders every handler error as a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// queryRequest is the body of a session query submission.
// Validation only checks the field is present; blank-after-trim input is
// rejected by Session.Submit with weather.ErrEmptyCity.
type queryRequest struct {
	City string `json:"city" validate:"required"`
}

func (q *queryRequest) bind(c *fiber.Ctx) error {
	if err := c.BodyParser(q); err != nil {
		return errors.New("invalid request body")
	}
	return validate.Struct(q)
}

func parseCelsius(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("celsius query parameter is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("celsius must be a finite number")
	}
	return v, nil
}
