package api

import (
	"net/http"
	"time"

	models "TradeWatch/internal/domain/models"
	domrepo "TradeWatch/internal/domain/repository"
	"TradeWatch/internal/usecase"
	xhttp "TradeWatch/pkg/http"
	xlogger "TradeWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DetectionHandler exposes the detection engine over Echo-based HTTP handlers.
type DetectionHandler struct {
	logger   *xlogger.Logger
	detector *usecase.Detector
	store    domrepo.GraphStore
}

func NewDetectionHandler(logger *xlogger.Logger, detector *usecase.Detector, store domrepo.GraphStore) *DetectionHandler {
	return &DetectionHandler{logger: logger, detector: detector, store: store}
}

func (h *DetectionHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/detect", h.DetectAll)
	g.GET("/detect/:family", h.DetectFamily)
	g.GET("/schema", h.Schema)
	g.GET("/schema/roles", h.Roles)
	g.GET("/schema/queries", h.SampleQueries)
	g.POST("/schema/refresh", h.RefreshSchema)
}

func (h *DetectionHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DetectionHandler) DetectAll(c echo.Context) error {
	req := &models.DetectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	activities, err := h.detector.DetectAll(c.Request().Context(), req.LookbackHours)
	if err != nil {
		h.logger.Error("detect usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, &models.DetectResponse{
		Activities:    activities,
		Total:         len(activities),
		LookbackHours: req.LookbackHours,
	})
}

func (h *DetectionHandler) DetectFamily(c echo.Context) error {
	req := &models.DetectFamilyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	activities, err := h.detector.DetectFamily(c.Request().Context(), models.PatternType(req.Family), req.LookbackHours)
	if err != nil {
		h.logger.Error("detect family usecase error",
			xlogger.String("family", req.Family),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, &models.DetectResponse{
		Activities:    activities,
		Total:         len(activities),
		LookbackHours: req.LookbackHours,
	})
}

func (h *DetectionHandler) Schema(c echo.Context) error {
	s, err := h.detector.Schema(c.Request().Context())
	if err != nil {
		h.logger.Error("schema usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, summarize(s))
}

func (h *DetectionHandler) Roles(c echo.Context) error {
	idx, err := h.detector.RoleIndex(c.Request().Context())
	if err != nil {
		h.logger.Error("roles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, idx)
}

func (h *DetectionHandler) SampleQueries(c echo.Context) error {
	queries, err := h.detector.SampleQueries(c.Request().Context())
	if err != nil {
		h.logger.Error("sample queries usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, queries)
}

func (h *DetectionHandler) RefreshSchema(c echo.Context) error {
	req := &models.SchemaRefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	s, err := h.detector.RefreshSchema(c.Request().Context(), req.Force)
	if err != nil {
		h.logger.Error("schema refresh usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, summarize(s))
}

func summarize(s *models.DiscoveredSchema) *models.SchemaSummary {
	return &models.SchemaSummary{
		EntityTypes:       s.EntityTypes,
		RelationshipTypes: s.RelationshipTypes,
		EntityCounts:      s.EntityCounts,
		Patterns:          s.Patterns,
		DiscoveredAt:      s.DiscoveredAt.UTC().Format(time.RFC3339),
	}
}
