package prescription

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/service/prescription"
	"github.com/jwalitptl/medconsult-api/pkg/httputil"
)

type Handler struct {
	service prescription.PrescriptionServicer
}

func NewHandler(service prescription.PrescriptionServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.GET("", h.ListPrescriptions)
		prescriptions.GET("/:id", h.GetPrescription)
		prescriptions.POST("", h.CreatePrescription)
		prescriptions.PUT("/:id", h.UpdatePrescription)
		prescriptions.DELETE("/:id", h.DeletePrescription)

		// Pharmacist actions
		prescriptions.POST("/:id/dispense", h.ToggleDispensed)
		prescriptions.POST("/:id/unavailable", h.MarkUnavailable)
		prescriptions.POST("/:id/available", h.MarkAvailable)
	}
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	prescs, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prescs)
}

func (h *Handler) GetPrescription(c *gin.Context) {
	presc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, presc)
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req model.CreatePrescriptionRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	presc, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, presc)
}

func (h *Handler) UpdatePrescription(c *gin.Context) {
	var req model.UpdatePrescriptionRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	presc, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, presc)
}

func (h *Handler) DeletePrescription(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Prescription deleted")
}

func (h *Handler) ToggleDispensed(c *gin.Context) {
	h.pharmacistAction(c, h.service.ToggleDispensed)
}

func (h *Handler) MarkUnavailable(c *gin.Context) {
	h.pharmacistAction(c, h.service.MarkUnavailable)
}

func (h *Handler) MarkAvailable(c *gin.Context) {
	h.pharmacistAction(c, h.service.MarkAvailable)
}

func (h *Handler) pharmacistAction(c *gin.Context, action func(ctx context.Context, id string) (*model.Prescription, error)) {
	presc, err := action(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, presc)
}
