package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/wishwall/internal/aws"
	"github.com/imrishuroy/wishwall/internal/logging"
	"github.com/imrishuroy/wishwall/internal/metrics"
	"github.com/imrishuroy/wishwall/internal/release"
	"github.com/imrishuroy/wishwall/internal/validation"
	"github.com/imrishuroy/wishwall/internal/wishes"
)

// ReleaseKeyHeader carries the shared secret for POST /api/wishes/release.
const ReleaseKeyHeader = "X-Release-Key"

// HandlerConfig groups dependencies for the wish handlers.
type HandlerConfig struct {
	Store     wishes.Store
	Releaser  release.Releaser
	Publisher *aws.Publisher // optional, enables ?async=true releases
	Metrics   metrics.Recorder

	MaxWishesPerUser int
	ReleaseAPIKey    string // empty disables the check
	ReleaseRunKey    string
	CountdownTarget  time.Time
	ReleaseTime      time.Time
	ReleaseMessage   string

	Now func() time.Time
}

// RegisterWishRoutes registers the wish wall API under /api.
func RegisterWishRoutes(r gin.IRouter, cfg HandlerConfig) {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxWishesPerUser <= 0 {
		cfg.MaxWishesPerUser = wishes.MaxActivePerUser
	}
	h := &wishHandler{cfg: cfg, v: validation.New()}

	api := r.Group("/api")
	api.GET("/config", h.config)
	api.GET("/wishes", h.list)
	api.POST("/wishes", h.create)
	api.GET("/wishes/count", h.count)
	api.POST("/wishes/release", h.release)
}

type wishHandler struct {
	cfg HandlerConfig
	v   *validatorv10.Validate
}

func internalError(c *gin.Context, code string, err error) {
	logging.FromContext(c.Request.Context()).Error(code, zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": code, "detail": err.Error()})
}

// parseLimit returns the default for absent or unparseable input and clamps the rest to [1, MaxListLimit].
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return wishes.DefaultListLimit
	}
	if n < 1 {
		return 1
	}
	if n > wishes.MaxListLimit {
		return wishes.MaxListLimit
	}
	return n
}

func (h *wishHandler) list(c *gin.Context) {
	status := wishes.StatusActive
	if raw := c.Query("status"); raw != "" {
		s, ok := wishes.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		status = s
	}

	res, err := h.cfg.Store.ListByStatus(c.Request.Context(), status, parseLimit(c.Query("limit")), c.Query("nextToken"))
	if err != nil {
		internalError(c, "list_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *wishHandler) create(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.CreateWishRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}
	in := req.ToCreateInput()

	// early rejection, the store re-checks on write
	n, err := h.cfg.Store.CountByUserAndStatus(ctx, in.UserID, wishes.StatusActive)
	if err != nil {
		internalError(c, "internal_error", err)
		return
	}
	if n >= h.cfg.MaxWishesPerUser {
		h.quotaExceeded(c)
		return
	}

	wish, err := h.cfg.Store.CreateWish(ctx, in)
	if errors.Is(err, wishes.ErrQuotaExceeded) {
		h.quotaExceeded(c)
		return
	}
	if err != nil {
		internalError(c, "internal_error", err)
		return
	}

	h.cfg.Metrics.WishCreated(ctx)
	c.JSON(http.StatusCreated, gin.H{"wish": wish})
}

func (h *wishHandler) quotaExceeded(c *gin.Context) {
	h.cfg.Metrics.QuotaRejected(c.Request.Context())
	c.JSON(http.StatusForbidden, gin.H{"error": "wish_limit_exceeded", "max": h.cfg.MaxWishesPerUser})
}

func (h *wishHandler) count(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_user_id"})
		return
	}
	userID = validation.EscapeHTML(userID)

	n, err := h.cfg.Store.CountByUserAndStatus(c.Request.Context(), userID, wishes.StatusActive)
	if err != nil {
		internalError(c, "count_failed", err)
		return
	}
	remaining := h.cfg.MaxWishesPerUser - n
	if remaining < 0 {
		remaining = 0
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    userID,
		"active":    n,
		"max":       h.cfg.MaxWishesPerUser,
		"remaining": remaining,
	})
}

func (h *wishHandler) release(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cfg.ReleaseAPIKey != "" {
		key := c.GetHeader(ReleaseKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.ReleaseAPIKey)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}

	force := c.Query("force") == "true"
	if !force && !h.released() {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "release_time_not_reached",
			"releaseTime": h.cfg.ReleaseTime.Format(time.RFC3339),
		})
		return
	}

	if c.Query("async") == "true" {
		if !h.cfg.Publisher.Enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "release_queue_not_configured"})
			return
		}
		cmd := aws.ReleaseCommand{
			RunKey:        h.cfg.ReleaseRunKey,
			Force:         force,
			Trigger:       release.TriggerQueue,
			CorrelationID: c.Writer.Header().Get(logging.RequestIDHeader),
		}
		if err := h.cfg.Publisher.SendReleaseCommand(ctx, cmd); err != nil {
			internalError(c, "enqueue_failed", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true, "runKey": cmd.RunKey})
		return
	}

	res, err := h.cfg.Releaser.Release(ctx, release.Options{
		RunKey:  h.cfg.ReleaseRunKey,
		Force:   force,
		Trigger: release.TriggerAPI,
	})
	if err != nil {
		logging.FromContext(ctx).Error("release_failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "release_failed", "detail": err.Error(), "updated": res.Updated})
		return
	}
	c.JSON(http.StatusOK, res)
}

// released reports whether the release moment has passed.
func (h *wishHandler) released() bool {
	return !h.cfg.Now().Before(h.cfg.ReleaseTime)
}

func (h *wishHandler) config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"countdownTarget":  h.cfg.CountdownTarget.Format(time.RFC3339),
		"releaseTime":      h.cfg.ReleaseTime.Format(time.RFC3339),
		"releaseMessage":   h.cfg.ReleaseMessage,
		"released":         h.released(),
		"maxWishesPerUser": h.cfg.MaxWishesPerUser,
		"defaultListLimit": wishes.DefaultListLimit,
		"maxListLimit":     wishes.MaxListLimit,
	})
}
