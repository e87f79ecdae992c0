package api

import (
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/usecase"
	xhttp "TradeDash/pkg/http"
	xlogger "TradeDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PortfolioHandler serves brokerage positions and trade history.
type PortfolioHandler struct {
	logger    *xlogger.Logger
	portfolio Portfolio
}

func NewPortfolioHandler(logger *xlogger.Logger, portfolio Portfolio) *PortfolioHandler {
	return &PortfolioHandler{logger: logger.Named("api.portfolio"), portfolio: portfolio}
}

func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/portfolio")
	g.GET("/positions", h.Positions)
	g.GET("/summary", h.Summary)
	g.GET("/transactions", h.Transactions)
	g.GET("/long-term", h.LongTerm)
}

func (h *PortfolioHandler) Positions(c echo.Context) error {
	start := time.Now()
	defer observe(c, "positions", start)

	positions, err := h.portfolio.Positions(c.Request().Context())
	if err != nil {
		return h.brokerFailure(c, "positions", err)
	}
	return xhttp.ListResponse(c, positions, int64(len(positions)))
}

func (h *PortfolioHandler) Summary(c echo.Context) error {
	start := time.Now()
	defer observe(c, "summary", start)

	summary, err := h.portfolio.Summary(c.Request().Context())
	if err != nil {
		return h.brokerFailure(c, "summary", err)
	}
	return xhttp.SuccessResponse(c, summary)
}

func (h *PortfolioHandler) Transactions(c echo.Context) error {
	start := time.Now()
	defer observe(c, "transactions", start)

	req := &models.TransactionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	txs, err := h.portfolio.TradeHistory(c.Request().Context(), usecase.TradeHistoryQuery{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		AccountID: req.AccountID,
	})
	if err != nil {
		return h.brokerFailure(c, "transactions", err)
	}
	return xhttp.ListResponse(c, txs, int64(len(txs)))
}

func (h *PortfolioHandler) LongTerm(c echo.Context) error {
	start := time.Now()
	defer observe(c, "long_term", start)

	holdings, err := h.portfolio.LongTermHoldings(c.Request().Context())
	if err != nil {
		return h.brokerFailure(c, "long_term", err)
	}
	return xhttp.ListResponse(c, holdings, int64(len(holdings)))
}

func (h *PortfolioHandler) brokerFailure(c echo.Context, endpoint string, err error) error {
	return failure(c, h.logger, endpoint, xhttp.UpstreamError("brokerage request failed").WithError(err))
}
