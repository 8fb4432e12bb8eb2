package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vehiclepush/internal/constants"
	"vehiclepush/internal/logger"
	"vehiclepush/internal/parser"
	"vehiclepush/internal/pipeline"
	"vehiclepush/internal/sink"
	"vehiclepush/internal/store"
	"vehiclepush/pkg/errors"
)

// Pipeline is the subset of the coordinator the API needs.
type Pipeline interface {
	Handle(ctx context.Context, raw parser.RawMessage) (pipeline.Decision, error)
	List(ctx context.Context, limit int) ([]store.Notification, error)
}

// PushRequest mirrors the push fields sent by the vehicle server.
type PushRequest struct {
	Title   string `json:"title" example:"V1"`
	Type    string `json:"type,omitempty" example:"A"`
	Message string `json:"message" example:"Door open"`
	Time    string `json:"time,omitempty" example:"2026-03-14 08:00:00"`
}

type NotificationView struct {
	Kind      string `json:"kind"`
	KindName  string `json:"kind_name"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type NotificationList struct {
	Notifications []NotificationView `json:"notifications"`
	Count         int                `json:"count"`
}

type Handler struct {
	pipeline   Pipeline
	bus        *sink.EventBus
	bufferSize int
	logger     logger.Logger
}

// NewHandler builds the API handler. A nil bus disables the event stream.
func NewHandler(p Pipeline, bus *sink.EventBus, bufferSize int, log logger.Logger) *Handler {
	if bufferSize <= 0 {
		bufferSize = constants.SSESubscriberQueue
	}
	return &Handler{
		pipeline:   p,
		bus:        bus,
		bufferSize: bufferSize,
		logger:     log.Named("api"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/push", h.Push)
		v1.GET("/notifications", h.ListNotifications)
		if h.bus != nil {
			v1.GET("/events", h.Events)
		}
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// Push godoc
// @Summary      Submit a push notification
// @Description  Runs one push through validation, dedup, filtering and dispatch
// @Tags         push
// @Accept       json
// @Produce      json
// @Param        push  body      PushRequest  true  "Push fields"
// @Success      200   {object}  pipeline.Decision
// @Failure      400   {object}  map[string]interface{}
// @Failure      422   {object}  map[string]interface{}
// @Failure      503   {object}  map[string]interface{}
// @Router       /push [post]
func (h *Handler) Push(c *gin.Context) {
	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithMessage("invalid JSON body").WithCause(err))
		return
	}

	decision, err := h.pipeline.Handle(c.Request.Context(), parser.RawMessage{
		Title:   req.Title,
		Type:    req.Type,
		Message: req.Message,
		Time:    req.Time,
		Origin:  "http:" + c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// ListNotifications godoc
// @Summary      List stored notifications
// @Description  Returns the newest accepted notifications first
// @Tags         notifications
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of records"  default(100)
// @Success      200    {object}  NotificationList
// @Failure      400    {object}  map[string]interface{}
// @Failure      503    {object}  map[string]interface{}
// @Router       /notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	list, err := h.pipeline.List(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, errors.Wrap(err, errors.ErrStoreUnavailable))
		return
	}

	views := make([]NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, NotificationView{
			Kind:      n.Kind.Code(),
			KindName:  n.Kind.Name(),
			Title:     n.Title,
			Text:      n.Text,
			Timestamp: n.Timestamp.UTC().Format(constants.TimestampLayout),
		})
	}
	c.JSON(http.StatusOK, NotificationList{Notifications: views, Count: len(views)})
}

// Events godoc
// @Summary      Stream broadcast events
// @Description  Server-Sent Events stream of notification and refresh events
// @Tags         events
// @Produce      text/event-stream
// @Success      200
// @Router       /events [get]
func (h *Handler) Events(c *gin.Context) {
	events, unsubscribe := h.bus.Subscribe(h.bufferSize)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(constants.SSEKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		case e, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(e.Type, e)
			c.Writer.Flush()
		}
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return constants.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.ErrValidation.
			WithMessage("limit must be a positive integer").
			WithDetail("limit", raw)
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	return limit, nil
}
