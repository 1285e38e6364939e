// Package rest exposes the salon API over HTTP/JSON.
package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/service/accounts"
	"salonbook/backend/internal/service/appointments"
	"salonbook/backend/internal/service/catalog"
)

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	Cancel(ctx context.Context, requester auth.Identity, appointmentID uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, requester auth.Identity) ([]domain.AppointmentView, error)
}

type accountsService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (domain.User, error)
	Login(ctx context.Context, username, password string) (accounts.LoginResult, error)
	ListUsers(ctx context.Context, requester auth.Identity) ([]domain.User, error)
}

type catalogService interface {
	List(ctx context.Context) ([]domain.Service, error)
	Create(ctx context.Context, requester auth.Identity, in catalog.CreateInput) (domain.Service, error)
	Update(ctx context.Context, requester auth.Identity, in catalog.UpdateInput) (domain.Service, error)
	Delete(ctx context.Context, requester auth.Identity, id int64) error
}

type Deps struct {
	Appointments appointmentsService
	Accounts     accountsService
	Catalog      catalogService
	Tokens       tokenParser
	Limiter      *RateLimiter
	Gatherer     prometheus.Gatherer
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
	Log   *slog.Logger
}

type handler struct {
	appointments appointmentsService
	accounts     accountsService
	catalog      catalogService
	log          *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))

	h := &handler{
		appointments: d.Appointments,
		accounts:     d.Accounts,
		catalog:      d.Catalog,
		log:          log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				log.Warn("readiness check failed", slog.Any("err", err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/", h.welcome)
	api.POST("/register", rateLimit(d.Limiter), h.register)
	api.POST("/login", rateLimit(d.Limiter), h.login)
	api.GET("/services", h.listServices)

	authed := api.Group("", authRequired(d.Tokens))
	authed.POST("/services", h.createService)
	authed.PUT("/services/:id", h.updateService)
	authed.DELETE("/services/:id", h.deleteService)

	authed.POST("/appointments", h.createAppointment)
	authed.GET("/appointments", h.listAppointments)
	authed.PUT("/appointments/:id", h.rescheduleAppointment)
	authed.DELETE("/appointments/:id", h.cancelAppointment)

	authed.GET("/admin/users", h.listUsers)

	return r
}

func (h *handler) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Salon Booking API",
		"endpoints": gin.H{
			"register":     "POST /api/register",
			"login":        "POST /api/login",
			"services":     "GET|POST /api/services, PUT|DELETE /api/services/:id",
			"appointments": "GET|POST /api/appointments, PUT|DELETE /api/appointments/:id",
			"admin_users":  "GET /api/admin/users",
		},
	})
}
