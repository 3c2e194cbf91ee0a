package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"frontdesk-service/internal/board"
	"frontdesk-service/internal/checkout"
	"frontdesk-service/internal/frontdesk"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	desk *frontdesk.Orchestrator
}

// NewHandler creates a new HTTP handler
func NewHandler(desk *frontdesk.Orchestrator) *Handler {
	return &Handler{desk: desk}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/appointments/groups", h.listGroups)
		v1.PATCH("/appointments/groups/:id/status", h.updateStatus)
		v1.POST("/appointments/walk-in", h.createWalkIn)
		v1.POST("/appointments/add-services/:groupId", h.addServices)
		v1.DELETE("/appointments/groups/:groupId/services/:serviceId", h.removeService)

		v1.POST("/appointments/checkout/merge", h.mergeCheckout)
		v1.POST("/appointments/checkout/groups/:id", h.addGroupToCheckout)
		v1.POST("/appointments/checkout/totals", h.checkoutTotals)
		v1.POST("/appointments/checkout/payment", h.submitPayment)
		v1.DELETE("/appointments/checkout", h.closeCheckout)

		v1.GET("/frontdesk/board-contract", h.boardContract)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listGroups reloads the board and returns every group
func (h *Handler) listGroups(c *gin.Context) {
	groups, err := h.desk.LoadBoard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if status := c.Query("status"); status != "" {
		groups = h.desk.Board.ByStatus(models.GroupStatus(status))
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

type updateStatusRequest struct {
	Status models.GroupStatus `json:"status" binding:"required"`
}

// updateStatus handles a status transition for one group
func (h *Handler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	groupID := c.Param("id")
	if err := h.desk.Controller.RequestTransition(c.Request.Context(), groupID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	group, _ := h.desk.Board.Get(groupID)
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// createWalkIn creates an ad hoc appointment group in WALK_IN
func (h *Handler) createWalkIn(c *gin.Context) {
	var req board.WalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	group, err := h.desk.Controller.CreateWalkIn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group": group})
}

type addServicesRequest struct {
	Services []models.ServiceLineItem `json:"services" binding:"required,min=1"`
}

// addServices appends service line items to a group
func (h *Handler) addServices(c *gin.Context) {
	var req addServicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	session, err := h.desk.AddServicesToGroup(c.Request.Context(), c.Param("groupId"), req.Services)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// removeService removes one service line item from a group
func (h *Handler) removeService(c *gin.Context) {
	session, err := h.desk.RemoveGroupService(c.Request.Context(), c.Param("groupId"), c.Param("serviceId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":        session,
		"session_closed": session == nil,
	})
}

type mergeCheckoutRequest struct {
	GroupIDs []string `json:"group_ids" binding:"required,min=1"`
}

// mergeCheckout opens a checkout session for a group set, or merges an
// additional group into the active session.
func (h *Handler) mergeCheckout(c *gin.Context) {
	var req mergeCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	session, err := h.desk.OpenCheckout(c.Request.Context(), req.GroupIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// addGroupToCheckout merges one more group into the active session,
// e.g. a card dropped onto the open checkout drawer.
func (h *Handler) addGroupToCheckout(c *gin.Context) {
	session, err := h.desk.AddGroupToCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// checkoutTotals recomputes the totals breakdown for the active session
func (h *Handler) checkoutTotals(c *gin.Context) {
	var req frontdesk.TotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	breakdown, err := h.desk.Totals(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": breakdown})
}

// submitPayment settles a checkout session
func (h *Handler) submitPayment(c *gin.Context) {
	var req checkout.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	payment, err := h.desk.SettlePayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// closeCheckout discards the active session without touching statuses
func (h *Handler) closeCheckout(c *gin.Context) {
	h.desk.CloseCheckout()
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

// boardContract returns the UI-facing column/shortcut/drag contract
func (h *Handler) boardContract(c *gin.Context) {
	c.JSON(http.StatusOK, h.desk.Contract())
}

// respondError maps domain errors onto HTTP statuses. Retryable
// failures carry a flag so the UI can offer a retry instead of treating
// the board as broken.
func respondError(c *gin.Context, err error) {
	var retryable *board.RetryableError
	switch {
	case errors.Is(err, models.ErrGroupNotFound), errors.Is(err, models.ErrServiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrMixedClients),
		errors.Is(err, models.ErrEmptyGroupSet),
		errors.Is(err, models.ErrNoActiveSession),
		errors.Is(err, board.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrPaymentInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &retryable):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     retryable.Error(),
			"retryable": true,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
