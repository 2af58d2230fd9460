package api

import (
	"github.com/labstack/echo/v4"

	models "PriceSignal/internal/domain/models"
	domsvc "PriceSignal/internal/domain/service"
	"PriceSignal/internal/usecase"
	xhttp "PriceSignal/pkg/http"
	xlogger "PriceSignal/pkg/logger"
)

// SignalsEchoHandler serves prediction and signal endpoints.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	signals   *usecase.SignalService
	catalog   domsvc.TokenCatalog
	limit     echo.MiddlewareFunc
}

func NewSignalsEchoHandler(logger *xlogger.Logger, predictor *usecase.Predictor, signals *usecase.SignalService, catalog domsvc.TokenCatalog) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{logger: logger, predictor: predictor, signals: signals, catalog: catalog}
}

// WithRateLimit guards the routes that call the upstream price API.
func (h *SignalsEchoHandler) WithRateLimit(mw echo.MiddlewareFunc) *SignalsEchoHandler {
	h.limit = mw
	return h
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)

	var upstream []echo.MiddlewareFunc
	if h.limit != nil {
		upstream = append(upstream, h.limit)
	}
	g.GET("/signal", h.Signal, upstream...)
	g.GET("/signals", h.Signals, upstream...)
	g.GET("/tokens", h.Tokens, upstream...)
}

func (h *SignalsEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	iv := models.NormalizeInterval(req.Interval)

	res, err := h.predictor.PredictPrices(c.Request().Context(), req.Symbol, iv, req.Prices)
	if err != nil {
		return h.fail(c, "predict usecase error", err)
	}
	return xhttp.SuccessResponse(c, models.NewPredictionResponse(res))
}

func (h *SignalsEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.signals.Signal(c.Request().Context(), req.Symbol, models.NormalizeInterval(req.Interval))
	if err != nil {
		return h.fail(c, "signal usecase error", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, models.NewPredictionResponse(res))
}

func (h *SignalsEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.signals.Signals(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "signals usecase error", err)
	}
	return xhttp.SuccessResponse(c, models.NewAggregateSignalsResponse(res))
}

func (h *SignalsEchoHandler) Tokens(c echo.Context) error {
	req := &models.TokensRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.catalog.Search(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return h.fail(c, "tokens usecase error", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *SignalsEchoHandler) fail(c echo.Context, msg string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(msg, xlogger.String("route", c.Path()), xlogger.Error(err))
	} else {
		h.logger.Debug(msg, xlogger.String("route", c.Path()), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
