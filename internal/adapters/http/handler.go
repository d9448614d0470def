package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/KonoNeko/MeowBuling/internal/app"
	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/layout"
	"github.com/KonoNeko/MeowBuling/internal/metrics"
)

const (
	maxQuestionLen   = 500
	maxReflectionLen = 5000
	maxLayoutTotal   = 200
)

type Handler struct {
	svc     *app.TarotService
	metrics *metrics.Collector
}

func NewHandler(svc *app.TarotService, m *metrics.Collector) *Handler {
	return &Handler{svc: svc, metrics: m}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}

	v1 := e.Group("/v1")
	v1.GET("/topics", h.ListTopics)
	v1.GET("/spreads", h.ListSpreads)
	v1.GET("/spreads/:id", h.GetSpread)
	v1.GET("/layouts/:type", h.GetLayout)

	v1.POST("/draws", h.StartDraw)
	v1.GET("/draws/:id", h.GetDraw)
	v1.POST("/draws/:id/shuffle", h.Shuffle)
	v1.POST("/draws/:id/assign", h.Assign)
	v1.POST("/quick-draw", h.QuickDraw)

	v1.GET("/readings", h.ListReadings)
	v1.GET("/readings/:id", h.GetReading)
	v1.PUT("/readings/:id/reflection", h.UpdateReflection)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) ListTopics(c echo.Context) error {
	topics, err := h.svc.ListTopics(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, topics)
}

func (h *Handler) ListSpreads(c echo.Context) error {
	f := app.SpreadFilter{
		Tag:      c.QueryParam("tag"),
		Category: c.QueryParam("category"),
		TopicID:  c.QueryParam("topic"),
	}
	if raw := c.QueryParam("subcategory"); raw != "" {
		sub, err := strconv.Atoi(raw)
		if err != nil || sub < 0 || f.TopicID == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "subcategory must be a non-negative index and needs topic"})
		}
		f.SubCategory = &sub
	}

	spreads, err := h.svc.ListSpreads(c.Request().Context(), f)
	if err != nil {
		return mapError(c, err)
	}
	out := make([]SpreadResponse, len(spreads))
	for i, s := range spreads {
		out[i] = toSpreadResponse(s)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetSpread(c echo.Context) error {
	s, err := h.svc.GetSpread(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSpreadResponse(s))
}

// GetLayout resolves every position of an arbitrary layout tag. Unknown tags
// resolve as linear, as they would for a spread.
func (h *Handler) GetLayout(c echo.Context) error {
	layoutType := c.Param("type")
	total, err := strconv.Atoi(c.QueryParam("total"))
	if err != nil || total < 1 || total > maxLayoutTotal {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "total must be an integer between 1 and 200"})
	}

	placements, err := layout.ResolveSpread(layoutType, total)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, LayoutResponse{
		Type:       layoutType,
		Total:      total,
		Known:      layout.Known(layoutType),
		Fallback:   !layout.Fits(layoutType, total),
		Placements: placements,
	})
}

func (h *Handler) StartDraw(c echo.Context) error {
	var req StartDrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if strings.TrimSpace(req.SpreadID) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "spread_id is required"})
	}
	if utf8.RuneCountInString(req.Question) > maxQuestionLen {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "question must be at most 500 characters"})
	}

	v, err := h.svc.StartDraw(c.Request().Context(), app.StartDrawRequest{
		SpreadID: req.SpreadID,
		TopicID:  req.TopicID,
		Question: req.Question,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toDrawResponse(v, requestID(c)))
}

func (h *Handler) GetDraw(c echo.Context) error {
	v, err := h.svc.GetDraw(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toDrawResponse(v, requestID(c)))
}

func (h *Handler) Shuffle(c echo.Context) error {
	v, err := h.svc.Shuffle(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toDrawResponse(v, requestID(c)))
}

func (h *Handler) Assign(c echo.Context) error {
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if req.CardID == nil || req.Slot == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "card_id and slot are required"})
	}

	v, err := h.svc.Assign(c.Request().Context(), c.Param("id"), *req.CardID, *req.Slot)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toDrawResponse(v, requestID(c)))
}

func (h *Handler) QuickDraw(c echo.Context) error {
	var req QuickDrawRequest
	// an empty body is fine: Bind leaves req untouched
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if utf8.RuneCountInString(req.Question) > maxQuestionLen {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "question must be at most 500 characters"})
	}

	v, err := h.svc.QuickDraw(c.Request().Context(), req.Question)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toDrawResponse(v, requestID(c)))
}

func (h *Handler) ListReadings(c echo.Context) error {
	readings, err := h.svc.ListReadings(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, readings)
}

func (h *Handler) GetReading(c echo.Context) error {
	r, err := h.svc.GetReading(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateReflection(c echo.Context) error {
	var req ReflectionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if utf8.RuneCountInString(req.Reflection) > maxReflectionLen {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "reflection must be at most 5000 characters"})
	}

	r, err := h.svc.UpdateReflection(c.Request().Context(), c.Param("id"), req.Reflection)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func requestID(c echo.Context) string {
	id, _ := c.Get("request_id").(string)
	return id
}

func mapError(c echo.Context, err error) error {
	var ooo *domain.OutOfOrderError

	switch {
	case errors.As(err, &ooo):
		next := ooo.Next
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "place cards in order", ExpectedSlot: &next})
	case errors.Is(err, domain.ErrUnknownCard), errors.Is(err, domain.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidSpread), errors.Is(err, domain.ErrInvalidDeck):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSpreadNotFound), errors.Is(err, domain.ErrTopicNotFound),
		errors.Is(err, domain.ErrDrawNotFound), errors.Is(err, domain.ErrReadingNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrServiceClosed):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case errors.Is(err, layout.ErrOutOfRange):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInterpretation), errors.Is(err, domain.ErrUpstreamLLM), errors.Is(err, domain.ErrInvalidLLMJSON):
		slog.Error("upstream LLM failure", "request_id", requestID(c), "error", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upstream LLM failure"})
	default:
		slog.Error("internal error", "request_id", requestID(c), "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
