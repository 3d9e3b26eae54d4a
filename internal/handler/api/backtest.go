package api

import (
	"time"

	domrepo "FinSim/internal/domain/repository"
	"FinSim/internal/usecase"
	xhttp "FinSim/pkg/http"
	xlogger "FinSim/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BacktestHandler exposes synchronous backtest runs over HTTP.
type BacktestHandler struct {
	logger   *xlogger.Logger
	backtest *usecase.BacktestUseCase
	registry *usecase.SignalerRegistry
}

func NewBacktestHandler(logger *xlogger.Logger, backtest *usecase.BacktestUseCase, registry *usecase.SignalerRegistry) *BacktestHandler {
	return &BacktestHandler{logger: logger, backtest: backtest, registry: registry}
}

func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/backtest", h.Run)
	g.GET("/signalers", h.Signalers)
	e.GET("/healthz", h.Health)
}

// BacktestRequest is the body of POST /api/v1/backtest. Either a registered
// signaler with its params or an explicit per-bar signal series drives the
// run.
type BacktestRequest struct {
	Symbol  string `json:"symbol" validate:"required"`
	From    int64  `json:"from"`
	To      int64  `json:"to"`
	LatestN int    `json:"latest_n" validate:"gte=0"`
	TF      string `json:"tf" default:"1m"`

	Signaler string             `json:"signaler"`
	Params   map[string]float64 `json:"params"`
	Signals  []float64          `json:"signals"`

	InitialCapital float64 `json:"initial_capital" validate:"gte=0"`
	CommissionRate float64 `json:"commission_rate" validate:"gte=0,lt=1"`
	DataPercentage float64 `json:"data_percentage" validate:"gte=0,lte=100"`
}

func (h *BacktestHandler) Run(c echo.Context) error {
	req := &BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Signaler == "" && len(req.Signals) == 0 {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("either signaler or signals is required"))
	}

	p := usecase.RunBacktestParams{
		Symbol:         req.Symbol,
		LatestN:        req.LatestN,
		Timeframe:      domrepo.NormalizeTimeframe(req.TF),
		Signaler:       req.Signaler,
		Params:         req.Params,
		Signals:        req.Signals,
		InitialCapital: req.InitialCapital,
		CommissionRate: req.CommissionRate,
		DataPercentage: req.DataPercentage,
	}
	if req.From > 0 {
		p.From = time.Unix(req.From, 0)
	}
	if req.To > 0 {
		p.To = time.Unix(req.To, 0)
	}

	res, err := h.backtest.Run(c.Request().Context(), p)
	if err != nil {
		h.logger.Error("backtest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) Signalers(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"signalers": h.registry.Names(),
	})
}

func (h *BacktestHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
