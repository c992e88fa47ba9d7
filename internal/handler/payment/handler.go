package payment

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/payment"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service payment.PaymentService
}

func NewHandler(service payment.PaymentService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, admin gin.HandlerFunc) {
	payments := r.Group("/payments")
	{
		payments.GET("/pending", h.GetPendingPayments)
		payments.GET("/overview", h.GetPaymentOverview)
		payments.POST("/bulk", admin, h.BulkUpdatePayments)
		payments.PUT("/:visitId", admin, h.UpdatePayment)
	}

	r.GET("/patients/:id/payments", h.GetPaymentHistory)
	r.GET("/patients/:id/payments/summary", h.GetPaymentSummary)
}

func (h *Handler) UpdatePayment(c *gin.Context) {
	visitID, err := httputil.UUIDParam(c, "visitId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var update model.PaymentUpdate
	if err := httputil.BindJSON(c, &update); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	v, err := h.service.UpdatePayment(c.Request.Context(), visitID, update)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

// BulkUpdatePayments answers 200 even when some items fail. Per-item
// outcomes are in the results.
func (h *Handler) BulkUpdatePayments(c *gin.Context) {
	var req model.BulkPaymentRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp, err := h.service.BulkUpdatePayments(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) GetPaymentHistory(c *gin.Context) {
	patientID, err := httputil.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	visits, err := h.service.GetPaymentHistory(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, visits)
}

func (h *Handler) GetPaymentSummary(c *gin.Context) {
	patientID, err := httputil.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	summary, err := h.service.GetPaymentSummary(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) GetPendingPayments(c *gin.Context) {
	pending, err := h.service.GetPendingPayments(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pending)
}

func (h *Handler) GetPaymentOverview(c *gin.Context) {
	overview, err := h.service.GetPaymentOverview(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, overview)
}
