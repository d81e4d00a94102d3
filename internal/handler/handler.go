package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/salehmehdi/pixel-manager/docs"
	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/dto"
	"github.com/salehmehdi/pixel-manager/internal/service"
)

// AppIDHeader names the tenant of a tracking request
const AppIDHeader = "X-App-ID"

// Options configures the HTTP handler
type Options struct {
	DefaultAppID string
	JWTSecret    string
}

type Handler struct {
	eventService       service.EventServicer
	credentialsService service.CredentialsServicer
	auth               *Auth
	opts               Options
	router             *gin.Engine
	log                *zap.Logger
}

func NewHandler(eventService service.EventServicer, credentialsService service.CredentialsServicer, opts Options, log *zap.Logger) *Handler {
	h := &Handler{
		eventService:       eventService,
		credentialsService: credentialsService,
		auth:               NewAuth(opts.JWTSecret, log),
		opts:               opts,
		router:             gin.Default(),
		log:                log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	h.router.GET("/health", h.healthCheck)
	h.router.POST("/events", h.trackEvent)
	h.router.POST("/events/bulk", h.trackEventsBulk)

	admin := h.router.Group("/", h.auth.Middleware())
	admin.GET("/stats", h.getStats)
	admin.GET("/apps/:app_id/credentials", h.getCredentials)
	admin.DELETE("/apps/:app_id/credentials", h.deleteCredentials)
	admin.PUT("/apps/:app_id/credentials/:platform", h.savePlatformCredentials)
	admin.DELETE("/apps/:app_id/credentials/:platform", h.removePlatformCredentials)
}

// healthCheck handles GET /health
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// trackEvent handles POST /events
// @Summary Track a single event
// @Description Normalize a tracking payload and queue it for every configured platform
// @Tags events
// @Accept json
// @Produce json
// @Param X-App-ID header string false "Application ID"
// @Param event body object true "Tracking payload"
// @Success 202 {object} dto.TrackEventResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /events [post]
func (h *Handler) trackEvent(c *gin.Context) {
	var raw map[string]any

	if err := c.ShouldBindJSON(&raw); err != nil {
		h.log.Warn("Invalid event request", zap.Error(err))
		h.validationError(c, err)
		return
	}

	appID := h.appID(c)
	enrichFromRequest(c, raw)

	result, err := h.eventService.TrackEvent(c.Request.Context(), appID, raw)
	if err != nil {
		h.respondError(c, "Failed to track event", err, zap.String("app_id", appID))
		return
	}

	h.log.Info("Event accepted",
		zap.String("app_id", appID),
		zap.String("event_id", result.EventID),
		zap.String("status", result.Status),
		zap.Int("destinations", len(result.Destinations)))

	c.JSON(http.StatusAccepted, result.Response())
}

// trackEventsBulk handles POST /events/bulk
// @Summary Track multiple events
// @Description Track several payloads independently; rejected items are reported by index
// @Tags events
// @Accept json
// @Produce json
// @Param X-App-ID header string false "Application ID"
// @Param events body dto.BulkTrackRequest true "Tracking payloads"
// @Success 202 {object} dto.BulkTrackResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /events/bulk [post]
func (h *Handler) trackEventsBulk(c *gin.Context) {
	var req dto.BulkTrackRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid bulk event request", zap.Error(err))
		h.validationError(c, err)
		return
	}

	appID := h.appID(c)
	for _, raw := range req.Events {
		enrichFromRequest(c, raw)
	}

	response, err := h.eventService.TrackBulk(c.Request.Context(), appID, req.Events)
	if err != nil {
		h.respondError(c, "Failed to track bulk events", err,
			zap.String("app_id", appID),
			zap.Int("event_count", len(req.Events)))
		return
	}

	h.log.Info("Bulk events processed",
		zap.String("app_id", appID),
		zap.Int("accepted", response.Accepted),
		zap.Int("rejected", response.Rejected),
		zap.Int("total", len(req.Events)))

	c.JSON(http.StatusAccepted, response)
}

// getStats handles GET /stats
// @Summary Get tracking statistics
// @Description Aggregate the tracking audit log by platform, event type and currency
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Param from query string false "First day (YYYY-MM-DD, UTC); defaults to 7 days ago" example:"2026-01-01"
// @Param to query string false "Last day (YYYY-MM-DD, UTC); defaults to today" example:"2026-01-07"
// @Success 200 {object} dto.StatsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /stats [get]
func (h *Handler) getStats(c *gin.Context) {
	var req dto.StatsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid stats request", zap.Error(err))
		h.validationError(c, err)
		return
	}

	response, err := h.eventService.GetStats(c.Request.Context(), req.From, req.To)
	if err != nil {
		h.respondError(c, "Failed to get stats", err,
			zap.Time("from", req.From),
			zap.Time("to", req.To))
		return
	}

	c.JSON(http.StatusOK, response)
}

// getCredentials handles GET /apps/:app_id/credentials
// @Summary Get application credentials
// @Description List the configured platforms of an application with secret fields masked
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Param app_id path string true "Application ID"
// @Success 200 {object} dto.CredentialsResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /apps/{app_id}/credentials [get]
func (h *Handler) getCredentials(c *gin.Context) {
	appID := c.Param("app_id")

	response, err := h.credentialsService.Get(c.Request.Context(), appID)
	if err != nil {
		h.respondError(c, "Failed to get credentials", err, zap.String("app_id", appID))
		return
	}

	c.JSON(http.StatusOK, response)
}

// savePlatformCredentials handles PUT /apps/:app_id/credentials/:platform
// @Summary Save platform credentials
// @Description Create or replace one platform's credential fields
// @Tags credentials
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param app_id path string true "Application ID"
// @Param platform path string true "Platform" Enums(meta, google, tiktok, pinterest, snapchat, brevo)
// @Param credentials body dto.SavePlatformCredentialsRequest true "Credential fields"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /apps/{app_id}/credentials/{platform} [put]
func (h *Handler) savePlatformCredentials(c *gin.Context) {
	appID := c.Param("app_id")

	platform, err := domain.ParsePlatform(c.Param("platform"))
	if err != nil {
		h.validationError(c, err)
		return
	}

	var req dto.SavePlatformCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid credentials request", zap.String("app_id", appID), zap.Error(err))
		h.validationError(c, err)
		return
	}

	if err := h.credentialsService.SavePlatform(c.Request.Context(), appID, platform, req.Credentials); err != nil {
		h.respondError(c, "Failed to save credentials", err,
			zap.String("app_id", appID),
			zap.String("platform", platform.String()))
		return
	}

	c.Status(http.StatusNoContent)
}

// removePlatformCredentials handles DELETE /apps/:app_id/credentials/:platform
// @Summary Remove platform credentials
// @Description Remove one platform from an application's credentials
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Param app_id path string true "Application ID"
// @Param platform path string true "Platform" Enums(meta, google, tiktok, pinterest, snapchat, brevo)
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /apps/{app_id}/credentials/{platform} [delete]
func (h *Handler) removePlatformCredentials(c *gin.Context) {
	appID := c.Param("app_id")

	platform, err := domain.ParsePlatform(c.Param("platform"))
	if err != nil {
		h.validationError(c, err)
		return
	}

	if err := h.credentialsService.RemovePlatform(c.Request.Context(), appID, platform); err != nil {
		h.respondError(c, "Failed to remove credentials", err,
			zap.String("app_id", appID),
			zap.String("platform", platform.String()))
		return
	}

	c.Status(http.StatusNoContent)
}

// deleteCredentials handles DELETE /apps/:app_id/credentials
// @Summary Delete application credentials
// @Description Delete every platform credential of an application
// @Tags credentials
// @Produce json
// @Security BearerAuth
// @Param app_id path string true "Application ID"
// @Success 204
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /apps/{app_id}/credentials [delete]
func (h *Handler) deleteCredentials(c *gin.Context) {
	appID := c.Param("app_id")

	if err := h.credentialsService.Delete(c.Request.Context(), appID); err != nil {
		h.respondError(c, "Failed to delete credentials", err, zap.String("app_id", appID))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) appID(c *gin.Context) string {
	if appID := c.GetHeader(AppIDHeader); appID != "" {
		return appID
	}
	return h.opts.DefaultAppID
}

func (h *Handler) validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

// respondError maps service errors to status codes
func (h *Handler) respondError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	switch {
	case service.IsValidationError(err):
		h.log.Warn(msg, fields...)
		h.validationError(c, err)
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrCredentialsReadOnly):
		h.log.Warn(msg, fields...)
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "read_only",
			Message: err.Error(),
		})
	default:
		h.log.Error(msg, fields...)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

// enrichFromRequest fills the customer's user agent and ip address from the request when the payload has none
func enrichFromRequest(c *gin.Context, raw map[string]any) {
	if raw == nil {
		return
	}
	target := raw
	if data, ok := raw["data"].(map[string]any); ok {
		if _, hasType := raw["event_type"]; !hasType {
			target = data
		}
	}

	customer, ok := target["customer"].(map[string]any)
	if !ok {
		customer = make(map[string]any)
		target["customer"] = customer
	}
	if !hasAny(customer, "user_agent", "client_user_agent") {
		if ua := c.Request.UserAgent(); ua != "" {
			customer["user_agent"] = ua
		}
	}
	if !hasAny(customer, "ip_address", "client_ip_address") {
		if ip := c.ClientIP(); ip != "" {
			customer["ip_address"] = ip
		}
	}
}

func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil && v != "" {
			return true
		}
	}
	return false
}
