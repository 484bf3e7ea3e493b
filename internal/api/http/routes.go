package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/transit-weather-analysis/internal/metrics"
	"github.com/i474232898/transit-weather-analysis/internal/predict"
	"github.com/i474232898/transit-weather-analysis/internal/records"
	"github.com/i474232898/transit-weather-analysis/internal/store"
	"github.com/i474232898/transit-weather-analysis/internal/summary"
)

var validate = validator.New()

// Dataset serves merged records.
type Dataset interface {
	Day(day string) ([]records.MergedRecord, error)
	All() ([]records.MergedRecord, error)
}

// Deps are the read-only components the API serves from.
type Deps struct {
	Summaries *store.SummaryStore
	Merged    Dataset
	Predictor *predict.Service
	Metrics   *metrics.Metrics
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/summaries", func(c *fiber.Ctx) error {
		from, to := c.Query("from"), c.Query("to")
		if from == "" && to == "" {
			return c.JSON(deps.Summaries.List())
		}

		q := rangeQuery{From: from, To: to}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		// ISO day tokens order lexicographically.
		if q.To < q.From {
			return fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
		}
		sums, err := deps.Summaries.Range(q.From, q.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no summaries for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load summaries")
		}
		return c.JSON(sums)
	})

	v1.Get("/summaries/:day", func(c *fiber.Ctx) error {
		q := dayQuery{Day: c.Params("day")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sum, err := deps.Summaries.Get(q.Day)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no summary for requested day")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load summary")
		}
		return c.JSON(sum)
	})

	v1.Get("/merged/:day", func(c *fiber.Ctx) error {
		var q previewQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rows, err := deps.Merged.Day(q.Day)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no merged data for requested day")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load merged data")
		}
		total := len(rows)
		if len(rows) > q.Limit {
			rows = rows[:q.Limit]
		}
		return c.JSON(fiber.Map{
			"day":     q.Day,
			"total":   total,
			"records": rows,
		})
	})

	v1.Get("/traffic/hourly", func(c *fiber.Ctx) error {
		rows, err := deps.Merged.All()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load merged data")
		}
		return c.JSON(fiber.Map{
			"hours":       summary.HourlyCounts(rows),
			"busiestHour": summary.BusiestHour(rows),
			"lines":       summary.LineHourMatrix(rows),
		})
	})

	v1.Get("/traffic/lines", func(c *fiber.Ctx) error {
		top, err := intQuery(c, "top", 5)
		if err != nil || top < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "top must be a positive integer")
		}
		rows, err := deps.Merged.All()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load merged data")
		}
		return c.JSON(summary.TopLines(rows, top))
	})

	v1.Get("/correlation", func(c *fiber.Ctx) error {
		rows, err := deps.Merged.All()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load merged data")
		}
		return c.JSON(summary.Correlations(rows))
	})

	v1.Post("/predict", func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		model, err := deps.Predictor.Model()
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "prediction model not available")
		}
		return c.JSON(fiber.Map{
			"prediction":   model.Predict(*req.Temperature, *req.Humidity),
			"coefficients": model.Coefficients,
			"rSquared":     model.RSquared,
			"samples":      model.Samples,
		})
	})
}

// dayQuery identifies one collection day.
type dayQuery struct {
	Day string `validate:"required,datetime=2006-01-02"`
}

// rangeQuery holds an inclusive day range.
type rangeQuery struct {
	From string `validate:"required,datetime=2006-01-02"`
	To   string `validate:"required,datetime=2006-01-02"`
}

// previewQuery holds parameters for the merged preview endpoint.
type previewQuery struct {
	Day   string `validate:"required,datetime=2006-01-02"`
	Limit int    `validate:"min=1,max=500"`
}

func (q *previewQuery) bind(c *fiber.Ctx) error {
	q.Day = c.Params("day")
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		return errors.New("limit must be an integer")
	}
	q.Limit = limit
	return nil
}

// predictRequest is the JSON body of the predict endpoint.
type predictRequest struct {
	Temperature *float64 `json:"temperature" validate:"required"`
	Humidity    *float64 `json:"humidity" validate:"required,gte=0,lte=100"`
}

func intQuery(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
