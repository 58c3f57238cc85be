package api

import (
	"encoding/json"
	"time"

	models "OptionWatch/internal/domain/models"
	domrepo "OptionWatch/internal/domain/repository"
	icache "OptionWatch/internal/service/cache"
	"OptionWatch/internal/service/metrics"
	"OptionWatch/internal/service/ratelimit"
	"OptionWatch/internal/signal/phase"
	"OptionWatch/internal/usecase"
	xhttp "OptionWatch/pkg/http"
	xlogger "OptionWatch/pkg/logger"
	"OptionWatch/pkg/util"

	"github.com/labstack/echo/v4"
)

// ScannerEchoHandler exposes the classification engine over HTTP.
type ScannerEchoHandler struct {
	logger  *xlogger.Logger
	eval    *usecase.Evaluator
	scanner *usecase.Scanner
	phase   *phase.Gate
	storage domrepo.Storage
	cache   icache.BytesCache
	rl      *ratelimit.Limiter
}

func NewScannerEchoHandler(
	logger *xlogger.Logger,
	eval *usecase.Evaluator,
	scanner *usecase.Scanner,
	phaseGate *phase.Gate,
) *ScannerEchoHandler {
	metrics.Register()
	return &ScannerEchoHandler{
		logger:  logger,
		eval:    eval,
		scanner: scanner,
		phase:   phaseGate,
		rl:      ratelimit.New(),
	}
}

// SetStorage enables the observations endpoint.
func (h *ScannerEchoHandler) SetStorage(s domrepo.Storage) { h.storage = s }

// SetCache enables response caching for the observations endpoint.
func (h *ScannerEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *ScannerEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/evaluate", h.Evaluate)
	g.GET("/scan", h.Scan)
	g.GET("/phase", h.Phase)
	g.GET("/observations", h.Observations)
}

// Evaluate grades one symbol on demand under the current phase.
func (h *ScannerEchoHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("evaluate").Observe(time.Since(start).Seconds()) }()

	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":evaluate", 5, 2) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("rate_limited", "", "rate limited", 429))
	}

	ph, th := h.phase.Current(start)
	ev, err := h.eval.Evaluate(c.Request().Context(), req.Symbol, ph, th, models.Decision(req.Decision))
	if err != nil {
		metrics.APIErrors.WithLabelValues("evaluate").Inc()
		h.logger.Error("evaluate error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, ev)
}

// Scan returns the latest watchlist report, running a fresh scan when asked
// or when no report exists yet.
func (h *ScannerEchoHandler) Scan(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("scan").Observe(time.Since(start).Seconds()) }()

	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if !req.Fresh {
		if report, ok := h.scanner.Last(ctx); ok {
			c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
			return xhttp.SuccessResponse(c, report)
		}
	}
	if !h.rl.Allow(c.RealIP()+":scan", 2, 0.2) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("rate_limited", "", "rate limited", 429))
	}

	report, err := h.scanner.Scan(ctx)
	if err != nil {
		metrics.APIErrors.WithLabelValues("scan").Inc()
		h.logger.Error("scan error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

type phaseResponse struct {
	Phase      models.MarketPhase `json:"phase"`
	Thresholds struct {
		StockMove   float64 `json:"stock_move"`
		SpreadLimit float64 `json:"spread_limit"`
		Strict      bool    `json:"strict"`
	} `json:"thresholds"`
	Timezone string    `json:"timezone"`
	Time     time.Time `json:"time"`
}

// Phase reports the current market phase and its thresholds.
func (h *ScannerEchoHandler) Phase(c echo.Context) error {
	now := time.Now()
	ph, th := h.phase.Current(now)

	resp := phaseResponse{
		Phase:    ph,
		Timezone: phase.ExchangeTimezone,
		Time:     now.In(h.phase.Location()),
	}
	resp.Thresholds.StockMove = th.StockMove
	resp.Thresholds.SpreadLimit = th.SpreadLimit
	resp.Thresholds.Strict = th.Strict
	return xhttp.SuccessResponse(c, resp)
}

// Observations queries persisted quote observations. Only available when a
// ClickHouse sink is configured.
func (h *ScannerEchoHandler) Observations(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("observations").Observe(time.Since(start).Seconds()) }()

	req := &models.ObservationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.storage == nil {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("no_storage", "", "observation storage not configured", 503))
	}
	if !h.rl.Allow(c.RealIP()+":observations", 5, 2) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("rate_limited", "", "rate limited", 429))
	}

	to := util.ParseTimeDefault(req.To, start)
	from := util.ParseTimeDefault(req.From, to.Add(-1*time.Hour))

	cacheKey := "obs:" + req.Symbol + ":" + req.Contract + ":" + req.From + ":" + req.To
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			return c.JSONBlob(200, b)
		}
	}

	obs, err := h.storage.Query(c.Request().Context(), req.Symbol, req.Contract, from, to, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues("observations").Inc()
		h.logger.Error("observations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		envelope := xhttp.APIResponse{Status: 200, Message: "OK", Data: obs}
		if b, err := json.Marshal(envelope); err == nil {
			_ = h.cache.SetBytes(cacheKey, b, 30*time.Second)
		}
	}
	return xhttp.SuccessResponse(c, obs)
}
