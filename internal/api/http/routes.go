package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/features"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/pipeline"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/store"
)

var validate = validator.New()

// predictRequest is the POST /predict payload. Inputs may contain any subset
// of the known raw fields; unknown keys are ignored by the engineer.
type predictRequest struct {
	LocationID string             `json:"location_id" validate:"omitempty,max=64"`
	Date       string             `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Inputs     map[string]float64 `json:"inputs"`
}

func (r predictRequest) empty() bool {
	return r.Date == "" && len(r.Inputs) == 0
}

func (r predictRequest) toRawInput() features.RawInput {
	in := make(features.RawInput, len(r.Inputs)+1)
	for k, v := range r.Inputs {
		in[k] = v
	}
	if r.Date != "" {
		in[features.FieldDate] = r.Date
	}
	return in
}

type predictResponse struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	pipeline.Result
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, registry *pipeline.Registry, history *store.MemoryStore) {
	v1 := app.Group("/api/v1")

	v1.Post("/predict", func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.empty() {
			return fiber.NewError(fiber.StatusBadRequest, "at least one input field is required")
		}

		locationID := req.LocationID
		if locationID == "" {
			locationID = "global"
		}

		result, err := registry.Current().Predict(req.toRawInput(), locationID)
		if err != nil {
			if errors.Is(err, features.ErrInvalidDate) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "prediction failed")
		}

		resp := predictResponse{
			RequestID: uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Result:    result,
		}

		history.Append(store.PredictionRecord{
			RequestID:          resp.RequestID,
			LocationID:         result.LocationID,
			Timestamp:          resp.Timestamp,
			PM25Predicted:      result.PM25Predicted,
			AirQualityCategory: result.AirQualityCategory,
			Confidence:         result.Confidence,
			ModelUsed:          result.ModelUsed,
		})

		return c.JSON(resp)
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		locations := registry.Current().AvailableLocations()
		return c.JSON(fiber.Map{
			"locations": locations,
			"count":     len(locations),
		})
	})

	v1.Get("/model", func(c *fiber.Ctx) error {
		return c.JSON(registry.Current().Info())
	})

	v1.Get("/predictions/history", func(c *fiber.Ctx) error {
		locationID := c.Query("location_id")
		if locationID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location_id query parameter is required")
		}

		records, err := history.History(locationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no predictions recorded for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch prediction history")
		}

		return c.JSON(fiber.Map{
			"location_id": locationID,
			"predictions": records,
		})
	})
}
