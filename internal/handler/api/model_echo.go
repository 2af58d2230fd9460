package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "PriceSignal/internal/domain/models"
	"PriceSignal/internal/services/artifact"
	"PriceSignal/internal/usecase"
	xhttp "PriceSignal/pkg/http"
	xlogger "PriceSignal/pkg/logger"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// ModelEchoHandler exposes the loaded artifact, retraining and health.
type ModelEchoHandler struct {
	logger     *xlogger.Logger
	predictor  *usecase.Predictor
	dispatcher usecase.RetrainDispatcher
	checks     map[string]HealthCheck
	location   string
	dataDir    string
}

func NewModelEchoHandler(logger *xlogger.Logger, predictor *usecase.Predictor, dispatcher usecase.RetrainDispatcher, location string) *ModelEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ModelEchoHandler{
		logger:     logger,
		predictor:  predictor,
		dispatcher: dispatcher,
		checks:     map[string]HealthCheck{},
		location:   location,
	}
}

// WithDataDir sets the directory csv_path is resolved against. Without one,
// CSV retrains are rejected.
func (h *ModelEchoHandler) WithDataDir(dir string) *ModelEchoHandler {
	h.dataDir = dir
	return h
}

// AddCheck registers a dependency probe reported by /healthz.
func (h *ModelEchoHandler) AddCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *ModelEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/model")
	g.GET("", h.Model)
	g.POST("/retrain", h.Retrain)
}

type modelResponse struct {
	Loaded      bool               `json:"loaded"`
	Location    string             `json:"location"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Meta        *artifact.Metadata `json:"meta,omitempty"`
}

func (h *ModelEchoHandler) Model(c echo.Context) error {
	res := modelResponse{Location: h.location}
	if a := h.predictor.Current(); a != nil {
		meta := a.Meta
		res.Loaded = true
		res.Fingerprint = a.Fingerprint
		res.Meta = &meta
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ModelEchoHandler) Retrain(c echo.Context) error {
	req := &models.RetrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.CSVPath == "" && req.Symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_REQUIRED", "csv_path", "csv_path or symbol is required", http.StatusBadRequest))
	}

	csvPath := req.CSVPath
	if csvPath != "" {
		resolved, err := usecase.ResolveDataPath(h.dataDir, csvPath)
		if err != nil {
			h.logger.Warn("retrain csv_path rejected", xlogger.String("csv_path", csvPath), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		csvPath = resolved
	}

	id, err := h.dispatcher.Dispatch(c.Request().Context(), usecase.RetrainPayload{
		CSVPath: csvPath,
		Symbol:  req.Symbol,
		Epochs:  req.Epochs,
		Resume:  req.Resume,
	})
	if err != nil {
		h.logger.Error("retrain dispatch error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.logger.Info("retrain scheduled", xlogger.String("job_id", id))
	return xhttp.AcceptedResponse(c, models.RetrainResponse{JobID: id, Type: usecase.RetrainJobType})
}

type healthResponse struct {
	Status   string            `json:"status"`
	Artifact string            `json:"artifact,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"`
}

// Health reports 200 when every dependency answers. A missing model is
// reported but does not fail the probe.
func (h *ModelEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	res := healthResponse{Status: "ok"}
	if a := h.predictor.Current(); a != nil {
		res.Artifact = a.Meta.ID
	}
	status := http.StatusOK
	if len(h.checks) > 0 {
		res.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				res.Checks[name] = err.Error()
				res.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}
	}
	return xhttp.DataResponse(c, status, res)
}
