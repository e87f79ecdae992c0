package api

import (
	"net/http"
	"time"

	"TradeDash/internal/domain/models"
	xhttp "TradeDash/pkg/http"
	xlogger "TradeDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

type WatchlistHandler struct {
	logger    *xlogger.Logger
	watchlist Watchlist
}

func NewWatchlistHandler(logger *xlogger.Logger, watchlist Watchlist) *WatchlistHandler {
	return &WatchlistHandler{logger: logger.Named("api.watchlist"), watchlist: watchlist}
}

func (h *WatchlistHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/symbols", h.Symbols)
	g.GET("/watchlist", h.List)
	g.POST("/watchlist", h.Add)
	g.DELETE("/watchlist/:symbol", h.Remove)
}

// Symbols lists the dropdown options: watchlist plus held positions.
func (h *WatchlistHandler) Symbols(c echo.Context) error {
	start := time.Now()
	defer observe(c, "symbols", start)

	opts, err := h.watchlist.Symbols(c.Request().Context())
	if err != nil {
		return failure(c, h.logger, "symbols", err)
	}
	return xhttp.SuccessResponse(c, opts)
}

func (h *WatchlistHandler) List(c echo.Context) error {
	start := time.Now()
	defer observe(c, "watchlist_list", start)

	symbols, err := h.watchlist.List(c.Request().Context())
	if err != nil {
		return failure(c, h.logger, "watchlist_list", err)
	}
	return xhttp.SuccessResponse(c, models.WatchlistResponse{Symbols: symbols})
}

// Add always answers 200 with the list; rejections travel in the message.
func (h *WatchlistHandler) Add(c echo.Context) error {
	start := time.Now()
	defer observe(c, "watchlist_add", start)

	req := &models.WatchlistAddRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	resp, err := h.watchlist.Add(c.Request().Context(), req.Symbol)
	if err != nil {
		return failure(c, h.logger, "watchlist_add", err)
	}
	return xhttp.DataResponse(c, http.StatusOK, resp)
}

func (h *WatchlistHandler) Remove(c echo.Context) error {
	start := time.Now()
	defer observe(c, "watchlist_remove", start)

	resp, err := h.watchlist.Remove(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return failure(c, h.logger, "watchlist_remove", err)
	}
	return xhttp.SuccessResponse(c, resp)
}
