package visit

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/visit"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service visit.VisitService
}

func NewHandler(service visit.VisitService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, admin gin.HandlerFunc) {
	r.POST("/patients/:id/visits", admin, h.RecordVisit)
	r.GET("/patients/:id/visits", h.GetVisitHistory)
}

// recordVisitResponse returns the visit with the patient as it stands after
// the schedule update
type recordVisitResponse struct {
	Visit   *model.Visit   `json:"visit"`
	Patient *model.Patient `json:"patient"`
}

func (h *Handler) RecordVisit(c *gin.Context) {
	patientID, err := httputil.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.CreateVisitRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	v, p, err := h.service.RecordVisit(c.Request.Context(), patientID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, recordVisitResponse{Visit: v, Patient: p})
}

func (h *Handler) GetVisitHistory(c *gin.Context) {
	patientID, err := httputil.UUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	visits, err := h.service.GetVisitHistory(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, visits)
}
