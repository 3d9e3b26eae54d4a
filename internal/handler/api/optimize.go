package api

import (
	"time"

	domrepo "FinSim/internal/domain/repository"
	"FinSim/internal/optimize"
	"FinSim/internal/usecase"
	xhttp "FinSim/pkg/http"
	xlogger "FinSim/pkg/logger"

	"github.com/labstack/echo/v4"
)

// OptimizeHandler exposes asynchronous optimization jobs over HTTP.
type OptimizeHandler struct {
	logger *xlogger.Logger
	jobs   *usecase.JobManager
}

func NewOptimizeHandler(logger *xlogger.Logger, jobs *usecase.JobManager) *OptimizeHandler {
	return &OptimizeHandler{logger: logger, jobs: jobs}
}

func (h *OptimizeHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/optimize", h.Submit)
	g.GET("/optimize", h.List)
	g.GET("/optimize/:id", h.Status)
	g.GET("/optimize/:id/progress", h.Progress)
	g.DELETE("/optimize/:id", h.Cancel)
}

// OptimizeRequest is the body of POST /api/v1/optimize.
type OptimizeRequest struct {
	Symbol  string `json:"symbol" validate:"required"`
	From    int64  `json:"from"`
	To      int64  `json:"to"`
	LatestN int    `json:"latest_n" validate:"gte=0"`
	TF      string `json:"tf" default:"1m"`

	Signaler  string                        `json:"signaler" validate:"required"`
	Space     map[string]optimize.Dimension `json:"space" validate:"required,min=1"`
	IntParams []string                      `json:"int_params"`
	Metric    string                        `json:"metric" default:"sharpe" validate:"oneof=sharpe total_return annual_return max_drawdown"`

	Policy    string  `json:"policy" default:"brute" validate:"oneof=brute coordinate halving"`
	MaxIter   int     `json:"max_iter" validate:"gte=0"`
	Patience  int     `json:"patience" validate:"gte=0"`
	Seed      int64   `json:"seed"`
	Workers   int     `json:"workers" validate:"gte=0"`
	Eta       float64 `json:"eta" validate:"gte=0"`
	MinBudget float64 `json:"min_budget" validate:"gte=0,lte=100"`

	InitialCapital float64 `json:"initial_capital" validate:"gte=0"`
	CommissionRate float64 `json:"commission_rate" validate:"gte=0,lt=1"`
	DataPercentage float64 `json:"data_percentage" validate:"gte=0,lte=100"`
}

func (h *OptimizeHandler) Submit(c echo.Context) error {
	req := &OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p := usecase.OptimizeParams{
		Symbol:         req.Symbol,
		LatestN:        req.LatestN,
		Timeframe:      domrepo.NormalizeTimeframe(req.TF),
		Signaler:       req.Signaler,
		Space:          optimize.Space(req.Space),
		IntParams:      req.IntParams,
		Metric:         req.Metric,
		Policy:         req.Policy,
		MaxIter:        req.MaxIter,
		Patience:       req.Patience,
		Seed:           req.Seed,
		Workers:        req.Workers,
		Eta:            req.Eta,
		MinBudget:      req.MinBudget,
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

	id := h.jobs.Submit(p)
	h.logger.Info("optimize job submitted",
		xlogger.String("job_id", id),
		xlogger.String("signaler", req.Signaler),
		xlogger.String("policy", req.Policy),
	)
	return xhttp.CreatedResponse(c, map[string]string{"id": id, "state": usecase.JobPending})
}

// List returns recent jobs, newest first. Supports ?limit= and ?since=
// (RFC3339 or unix seconds).
func (h *OptimizeHandler) List(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 20)
	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{})
	return xhttp.SuccessResponse(c, h.jobs.List(limit, since))
}

func (h *OptimizeHandler) Status(c echo.Context) error {
	st, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *OptimizeHandler) Cancel(c echo.Context) error {
	if err := h.jobs.Cancel(c.Param("id")); err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.NoContentResponse(c)
}
