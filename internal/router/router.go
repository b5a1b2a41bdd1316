package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/sandpiper/backend/api/handler"
)

type Handlers struct {
	Auth        *apiHandler.AuthHandler
	Person      *apiHandler.PersonHandler
	Todo        *apiHandler.TodoHandler
	Health      *apiHandler.HealthHandler
	Diagnostics *apiHandler.DiagnosticsHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, authMiddleware Middleware) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/auth/signup", handlers.Auth.Signup)
	r.POST("/auth/login", handlers.Auth.Login)
	r.POST("/auth/verify_email", handlers.Auth.VerifyEmail)
	r.POST("/auth/forgot_password", handlers.Auth.ForgotPassword)
	r.POST("/auth/reset_password", handlers.Auth.ResetPassword)
	r.POST("/auth/logout", authMiddleware(handlers.Auth.Logout))
	r.POST("/auth/refresh", authMiddleware(handlers.Auth.Refresh))

	// Protected routes
	r.GET("/person/me", authMiddleware(handlers.Person.Me))
	r.PUT("/person/me", authMiddleware(handlers.Person.Update))

	r.GET("/todo/", authMiddleware(handlers.Todo.List))
	r.POST("/todo/", authMiddleware(handlers.Todo.Create))
	r.GET("/todo/{id}", authMiddleware(handlers.Todo.Get))
	r.PUT("/todo/{id}", authMiddleware(handlers.Todo.Update))
	r.DELETE("/todo/{id}", authMiddleware(handlers.Todo.Delete))
	r.PUT("/todo/{id}/toggle", authMiddleware(handlers.Todo.Toggle))

	// Diagnostics, disabled in production by the handler
	r.GET("/test/health", handlers.Diagnostics.Health)
	r.POST("/test/create_user", handlers.Diagnostics.CreateUser)
	r.GET("/test/debug_todos", handlers.Diagnostics.DebugTodos)

	return r
}

// Chain wraps h so the first middleware runs outermost.
func Chain(h fasthttp.RequestHandler, middlewares ...Middleware) fasthttp.RequestHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
