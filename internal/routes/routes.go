package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/campuslink/api/internal/handlers"
	"github.com/campuslink/api/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	signupHandler *handlers.SignupHandler,
	registerLimit middleware.RateLimitConfig,
	keyedLimiter *middleware.FixedWindowLimiter,
) {
	// Registration is open to the world, so it only gets the coarse per-IP
	// limit. Everything under the resume token gets the keyed limiter, which
	// throttles each signup attempt separately even behind shared NAT.
	router.With(middleware.RateLimitByIP(registerLimit)).Post("/signup/register", signupHandler.Register)

	router.Group(func(r chi.Router) {
		r.Use(keyedLimiter.Handler)

		r.Post("/signup/verify", signupHandler.Verify)
		r.Post("/signup/resend", signupHandler.Resend)
		r.Patch("/signup/email", signupHandler.ChangeEmail)
		r.Get("/signup/context", signupHandler.Context)
	})
}
