package api

import (
	"time"

	"TradeDash/internal/domain/models"
	xhttp "TradeDash/pkg/http"
	xlogger "TradeDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler serves indicator analysis and recorded signal history.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	analyzer Analyzer
}

func NewAnalysisHandler(logger *xlogger.Logger, analyzer Analyzer) *AnalysisHandler {
	return &AnalysisHandler{logger: logger.Named("api.analysis"), analyzer: analyzer}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/analysis", h.Analysis)
	g.GET("/signals/history", h.SignalHistory)
}

func (h *AnalysisHandler) Analysis(c echo.Context) error {
	start := time.Now()
	defer observe(c, "analysis", start)

	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analyzer.Analyze(c.Request().Context(), req.Symbol)
	if err != nil {
		return failure(c, h.logger, "analysis", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) SignalHistory(c echo.Context) error {
	start := time.Now()
	defer observe(c, "signal_history", start)

	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	events, err := h.analyzer.History(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return failure(c, h.logger, "signal_history", err)
	}
	return xhttp.ListResponse(c, events, int64(len(events)))
}
