package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/service/accounts"
	"salonbook/backend/internal/service/appointments"
	"salonbook/backend/internal/service/catalog"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.accounts.Register(c.Request.Context(), accounts.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	h.log.Info("user registered", slog.String("user_id", u.ID.String()))
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": res.AccessToken, "is_admin": res.IsAdmin})
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

func (h *handler) listUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context(), identity(c))
	if err != nil {
		h.fail(c, "list users", err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID.String(), Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin})
	}
	c.JSON(http.StatusOK, out)
}

type serviceResponse struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Duration int         `json:"duration"`
	Price    json.Number `json:"price"`
}

func toServiceResponse(s domain.Service) serviceResponse {
	return serviceResponse{
		ID:       s.ID,
		Name:     s.Name,
		Duration: s.Duration,
		Price:    json.Number(s.Price.StringFixed(2)),
	}
}

func (h *handler) listServices(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list services", err)
		return
	}
	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

type createServiceRequest struct {
	Name     string          `json:"name"`
	Duration int             `json:"duration"`
	Price    decimal.Decimal `json:"price"`
}

func (h *handler) createService(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	s, err := h.catalog.Create(c.Request.Context(), identity(c), catalog.CreateInput{
		Name:     req.Name,
		Duration: req.Duration,
		Price:    req.Price,
	})
	if err != nil {
		h.fail(c, "create service", err)
		return
	}
	h.log.Info("service created", slog.Int64("service_id", s.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "Service created", "id": s.ID})
}

type updateServiceRequest struct {
	Name     *string          `json:"name"`
	Duration *int             `json:"duration"`
	Price    *decimal.Decimal `json:"price"`
}

func (h *handler) updateService(c *gin.Context) {
	id, ok := serviceID(c)
	if !ok {
		return
	}
	var req updateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	_, err := h.catalog.Update(c.Request.Context(), identity(c), catalog.UpdateInput{
		ID:       id,
		Name:     req.Name,
		Duration: req.Duration,
		Price:    req.Price,
	})
	if err != nil {
		h.fail(c, "update service", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service updated"})
}

func (h *handler) deleteService(c *gin.Context) {
	id, ok := serviceID(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), identity(c), id); err != nil {
		h.fail(c, "delete service", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted"})
}

func serviceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Service not found"})
		return 0, false
	}
	return id, true
}

type createAppointmentRequest struct {
	ServiceID int64  `json:"service_id"`
	DateTime  string `json:"date_time"`
}

func (h *handler) createAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	appt, err := h.appointments.Create(c.Request.Context(), appointments.CreateInput{
		Requester:      identity(c),
		ServiceID:      req.ServiceID,
		DateTime:       req.DateTime,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		h.fail(c, "create appointment", err)
		return
	}
	h.log.Info("appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("user_id", appt.UserID.String()),
		slog.String("date_time", domain.FormatSlot(appt.DateTime)),
	)
	c.JSON(http.StatusCreated, gin.H{"message": "Appointment created", "id": appt.ID.String()})
}

func idempotencyKey(c *gin.Context) string {
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		key = c.GetHeader("X-Idempotency-Key")
	}
	return strings.TrimSpace(key)
}

type appointmentResponse struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Service  string `json:"service"`
	DateTime string `json:"date_time"`
	Status   string `json:"status"`
}

func (h *handler) listAppointments(c *gin.Context) {
	views, err := h.appointments.List(c.Request.Context(), identity(c))
	if err != nil {
		h.fail(c, "list appointments", err)
		return
	}
	out := make([]appointmentResponse, 0, len(views))
	for _, v := range views {
		out = append(out, appointmentResponse{
			ID:       v.ID.String(),
			User:     v.Username,
			Service:  v.ServiceName,
			DateTime: domain.FormatSlot(v.DateTime),
			Status:   string(v.Status),
		})
	}
	c.JSON(http.StatusOK, out)
}

type rescheduleRequest struct {
	DateTime string `json:"date_time"`
}

func (h *handler) rescheduleAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	appt, err := h.appointments.Reschedule(c.Request.Context(), appointments.RescheduleInput{
		Requester:     identity(c),
		AppointmentID: id,
		DateTime:      req.DateTime,
	})
	if err != nil {
		h.fail(c, "reschedule appointment", err)
		return
	}
	h.log.Info("appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("date_time", domain.FormatSlot(appt.DateTime)),
	)
	c.JSON(http.StatusOK, gin.H{"message": "Appointment rescheduled"})
}

func (h *handler) cancelAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}
	if _, err := h.appointments.Cancel(c.Request.Context(), identity(c), id); err != nil {
		h.fail(c, "cancel appointment", err)
		return
	}
	h.log.Info("appointment cancelled", slog.String("appointment_id", id.String()))
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled"})
}

func appointmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Appointment not found"})
		return uuid.Nil, false
	}
	return id, true
}
