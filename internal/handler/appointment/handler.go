package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/service/appointment"
	"github.com/jwalitptl/medconsult-api/internal/service/prescription"
	"github.com/jwalitptl/medconsult-api/pkg/httputil"
)

type Handler struct {
	service       appointment.AppointmentServicer
	prescriptions prescription.PrescriptionServicer
}

func NewHandler(service appointment.AppointmentServicer, prescriptions prescription.PrescriptionServicer) *Handler {
	return &Handler{service: service, prescriptions: prescriptions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("", h.CreateAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)

		// Doctor workflow
		appointments.POST("/:id/approve", h.ApproveAppointment)
		appointments.POST("/:id/reject", h.RejectAppointment)
		appointments.POST("/:id/complete", h.CompleteAppointment)
		appointments.POST("/:id/prescription", h.WritePrescription)
	}
}

// ListAppointments accepts optional ?patientId=, ?doctorId= and ?status= filters.
func (h *Handler) ListAppointments(c *gin.Context) {
	filters := model.AppointmentFilters{
		PatientID: c.Query("patientId"),
		DoctorID:  c.Query("doctorId"),
		Status:    model.AppointmentStatus(c.Query("status")),
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	appt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appt, err := h.service.Book(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	var req model.UpdateAppointmentRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appt, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Appointment deleted")
}

func (h *Handler) ApproveAppointment(c *gin.Context) {
	appt, err := h.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// RejectAppointment takes an optional {"reason": "..."} body.
func (h *Handler) RejectAppointment(c *gin.Context) {
	var req model.RejectAppointmentRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appt, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	appt, err := h.service.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (h *Handler) WritePrescription(c *gin.Context) {
	var req model.WritePrescriptionRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	presc, err := h.prescriptions.Write(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, presc)
}
