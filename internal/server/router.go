package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

const sessionHeader = "X-Session-Id"

var errMissingDealRoomService = errors.New("deal room service dependency required")

// Dependencies wires the HTTP layer.
type Dependencies struct {
	DealRoomService *dealroom.Service
	Logger          *zap.Logger
}

// NewHTTPHandler builds the gin router for the deal room API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.DealRoomService == nil {
		return nil, errMissingDealRoomService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", sessionHeader},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{service: deps.DealRoomService, logger: logger}

	router.GET("/healthz", handler.handleHealth)

	room := router.Group("/projects/:projectId/deal-room")
	room.GET("", handler.handleGetDealRoom)
	room.PUT("", handler.handleUpdateDealRoom)
	room.POST("/showcase-photo", handler.handleUploadShowcasePhoto)
	room.DELETE("/showcase-photo", handler.handleRemoveShowcasePhoto)
	room.GET("/showcase-photo", handler.handleGetShowcasePhoto)
	room.POST("/draft", handler.handleSaveDraft)
	room.POST("/draft/publish", handler.handlePublishDraft)
	room.GET("/save-status", handler.handleSaveStatus)
	room.GET("/recover-changes", handler.handleRecoverChanges)
	room.GET("/versions", handler.handleListVersions)
	room.GET("/conflicts", handler.handleListConflicts)
	room.POST("/conflicts/:conflictId/resolve", handler.handleResolveConflict)

	return router, nil
}

type httpHandler struct {
	service *dealroom.Service
	logger  *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleGetDealRoom(c *gin.Context) {
	room, err := h.service.GetOrCreateDealRoom(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *httpHandler) handleUpdateDealRoom(c *gin.Context) {
	var payload dealroom.DraftData
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	room, err := h.service.UpdateDealRoom(c.Request.Context(), c.Param("projectId"), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *httpHandler) handleUploadShowcasePhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}

	source, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer source.Close()

	content, err := io.ReadAll(source)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}

	photo, err := h.service.UploadShowcasePhoto(
		c.Request.Context(),
		c.Param("projectId"),
		content,
		file.Filename,
		file.Header.Get("Content-Type"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

func (h *httpHandler) handleRemoveShowcasePhoto(c *gin.Context) {
	if err := h.service.RemoveShowcasePhoto(c.Request.Context(), c.Param("projectId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGetShowcasePhoto(c *gin.Context) {
	photo, content, err := h.service.OpenShowcasePhoto(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, photo.MimeType, content)
}

type draftSavePayload struct {
	SessionID  string             `json:"sessionId"`
	UserID     string             `json:"userId"`
	DraftData  dealroom.DraftData `json:"draftData"`
	IsAutoSave bool               `json:"isAutoSave"`
}

type draftSaveResponse struct {
	DraftID   string    `json:"draftId"`
	Version   int64     `json:"version"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *httpHandler) handleSaveDraft(c *gin.Context) {
	var payload draftSavePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	draft, err := h.service.SaveDraft(c.Request.Context(), dealroom.SaveDraftInput{
		ProjectID:  c.Param("projectId"),
		SessionID:  h.sessionID(c, payload.SessionID),
		UserID:     payload.UserID,
		DraftData:  payload.DraftData,
		IsAutoSave: payload.IsAutoSave,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draftSaveResponse{
		DraftID:   draft.ID,
		Version:   draft.Version,
		ExpiresAt: draft.ExpiresAt,
	})
}

type publishPayload struct {
	SessionID         string `json:"sessionId"`
	ChangeDescription string `json:"changeDescription"`
}

func (h *httpHandler) handlePublishDraft(c *gin.Context) {
	// An empty body is a publish with no change description.
	var payload publishPayload
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.service.PublishDraft(
		c.Request.Context(),
		c.Param("projectId"),
		h.sessionID(c, payload.SessionID),
		payload.ChangeDescription,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleSaveStatus(c *gin.Context) {
	status, err := h.service.GetSaveStatus(c.Request.Context(), c.Param("projectId"), h.sessionID(c, ""))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *httpHandler) handleRecoverChanges(c *gin.Context) {
	recovered, err := h.service.RecoverUnsavedChanges(c.Request.Context(), c.Param("projectId"), h.sessionID(c, ""))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": recovered})
}

func (h *httpHandler) handleListVersions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}

	versions, err := h.service.ListVersions(c.Request.Context(), c.Param("projectId"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *httpHandler) handleListConflicts(c *gin.Context) {
	conflicts, err := h.service.UnresolvedConflicts(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": conflicts})
}

type resolvePayload struct {
	Resolution string `json:"resolution"`
}

func (h *httpHandler) handleResolveConflict(c *gin.Context) {
	var payload resolvePayload
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.Resolution) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	resolved, err := h.service.ResolveConflict(
		c.Request.Context(),
		c.Param("conflictId"),
		dealroom.Resolution(payload.Resolution),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}

// sessionID prefers the X-Session-Id header over the request body. Sessions
// are opaque client-chosen strings; there is no authentication model behind
// them.
func (h *httpHandler) sessionID(c *gin.Context, fromBody string) string {
	if header := strings.TrimSpace(c.GetHeader(sessionHeader)); header != "" {
		return header
	}
	return strings.TrimSpace(fromBody)
}

// respondError maps the domain error taxonomy onto HTTP statuses.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var validation *dealroom.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var notFound *dealroom.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var conflict *dealroom.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.logger.Error("deal room request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
