package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/config"
	authhandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// Handler mounts resource routes on an authenticated group. admin guards
// the routes that mutate records.
type Handler interface {
	RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc)
}

type Handlers struct {
	Auth        *authhandler.Handler
	Health      *health.Handler
	Metrics     *prometheus.Handler
	Patient     Handler
	Visit       Handler
	Payment     Handler
	Appointment Handler
}

type Config struct {
	Server    config.ServerConfig
	RateLimit config.RateLimitConfig
	CORS      config.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(cfg Config, auth *middleware.AuthMiddleware, handlers Handlers) *Router {
	middleware.RegisterBindingValidation()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(middleware.NoRoute())
	engine.NoMethod(middleware.NoMethod())

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
	)
	if handlers.Metrics != nil {
		engine.Use(handlers.Metrics.Middleware())
	}
	engine.Use(
		middleware.CORS(cfg.CORS),
		middleware.SecurityHeaders(middleware.SecurityConfigFor(cfg.Server)),
		middleware.SizeLimit(cfg.Server.MaxBodyBytes),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)
	if cfg.RateLimit.Enabled {
		engine.Use(middleware.NewRateLimiter(cfg.RateLimit).RateLimit())
	}

	r.setup()
	return r
}

func (r *Router) setup() {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(r.engine)
	}
	if r.handlers.Metrics != nil {
		r.engine.GET("/metrics", r.handlers.Metrics.Handler())
	}

	api := r.engine.Group("/api/v1", middleware.NoStore())
	admin := r.auth.RequireRole(model.RoleAdmin)

	r.handlers.Auth.RegisterRoutes(api, r.auth.Authenticate(), admin)

	protected := api.Group("", r.auth.Authenticate(), middleware.AccessLog())
	for _, h := range []Handler{
		r.handlers.Patient,
		r.handlers.Visit,
		r.handlers.Payment,
		r.handlers.Appointment,
	} {
		h.RegisterRoutes(protected, admin)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
