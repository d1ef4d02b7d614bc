// Package router wires the handlers to their routes and middleware.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/handler"
	"github.com/iliyamo/crm-backend/internal/middleware"
)

// Handlers groups the endpoint handlers.
type Handlers struct {
	Auth      *handler.AuthHandler
	Leads     *handler.LeadHandler
	Notes     *handler.NoteHandler
	Tags      *handler.TagHandler
	Users     *handler.UserHandler
	Dashboard *handler.DashboardHandler
}

// Options carries the cross-cutting pieces of the route table. RateLimit
// and Cache may be nil.
type Options struct {
	Auth      middleware.Authenticator
	Audit     handler.Recorder
	RateLimit echo.MiddlewareFunc
	Cache     *middleware.ResponseCache
	Metrics   http.Handler
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return passThrough
	}
	return m
}

// New returns an echo instance with the API error handler. RealIP is the
// peer address; forwarding headers are ignored.
func New(development bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(development)
	e.IPExtractor = echo.ExtractIPDirect()
	return e
}

// Register mounts /health, /metrics and the /api tree on e.
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/health", handler.Health)
	if o.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(o.Metrics))
	}

	api := e.Group("/api", orPass(o.RateLimit), o.Cache.Invalidate())
	authn := middleware.Authenticate(o.Auth)
	cache := o.Cache.Middleware()

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", handler.Audited(o.Audit, "auth", h.Auth.Register), middleware.OptionalAuthenticate(o.Auth))
	auth.POST("/logout", handler.Audited(o.Audit, "auth", h.Auth.Logout), authn)
	auth.GET("/profile", h.Auth.Profile, authn)

	leads := api.Group("/leads", authn)
	leads.GET("", h.Leads.List)
	leads.POST("", handler.Audited(o.Audit, "leads", h.Leads.Create), middleware.RequireRole(access.AllRoles...))
	leads.POST("/import", handler.Audited(o.Audit, "leads", h.Leads.Import), middleware.RequireRole(access.AdminRoles...))
	leads.GET("/export", h.Leads.Export)
	leads.GET("/:id", h.Leads.Get)
	leads.PUT("/:id", handler.Audited(o.Audit, "leads", h.Leads.Update))

	notes := api.Group("/notes", authn)
	notes.POST("/:id/notes", handler.Audited(o.Audit, "notes", h.Notes.Add), middleware.RequireRole(access.AllRoles...))
	notes.PUT("/:id/notes/:noteId", handler.Audited(o.Audit, "notes", h.Notes.Update))
	notes.DELETE("/:id/notes/:noteId", handler.Audited(o.Audit, "notes", h.Notes.Delete))
	notes.GET("/:id/notes", h.Notes.List)

	tags := api.Group("/tags", authn)
	tags.GET("", h.Tags.All, cache)
	tags.PUT("/:id", handler.Audited(o.Audit, "tags", h.Tags.Update), middleware.RequireRole(access.AllRoles...))
	tags.GET("/:tag/leads", h.Tags.Leads)

	users := api.Group("/users", authn)
	users.POST("", handler.Audited(o.Audit, "users", h.Users.Create), middleware.RequireRole(access.SuperAdmin...))
	users.GET("", h.Users.List, middleware.RequireRole(access.AdminRoles...))
	users.PUT("/:id", handler.Audited(o.Audit, "users", h.Users.Update), middleware.RequireRole(access.SuperAdmin...))
	users.DELETE("/:id", handler.Audited(o.Audit, "users", h.Users.Delete), middleware.RequireRole(access.SuperAdmin...))
	users.GET("/:userId/activity", h.Users.Activity, middleware.RequireRole(access.SuperAdmin...))

	dashboard := api.Group("/dashboard", authn)
	dashboard.GET("/stats", h.Dashboard.Stats, cache)
}
