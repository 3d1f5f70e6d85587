package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ebasak22/Fitness/internal/config"
	"github.com/ebasak22/Fitness/internal/http/handler"
	httpmiddleware "github.com/ebasak22/Fitness/internal/http/middleware"
	"github.com/ebasak22/Fitness/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	sessionHandler *handler.SessionHandler,
	profileHandler *handler.ProfileHandler,
	membershipHandler *handler.MembershipHandler,
	addressHandler *handler.AddressHandler,
	shoppingHandler *handler.ShoppingHandler,
	authMiddleware *httpmiddleware.Auth,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	memberGroup := r.Group("/member")
	{
		otp := memberGroup.Group("/otp")
		{
			otp.POST("/request", sessionHandler.RequestOTP)
			otp.POST("/verify", sessionHandler.VerifyOTP)
		}
		memberGroup.POST("/phone/change", sessionHandler.ChangePhone)
		memberGroup.POST("/logout", authMiddleware.RequireSession, sessionHandler.Logout)

		memberGroup.GET("/plans", membershipHandler.Plans)
		memberGroup.GET("/trainers", membershipHandler.Trainers)
		memberGroup.GET("/products", shoppingHandler.Products)

		authed := memberGroup.Group("", authMiddleware.RequireSession)
		{
			authed.GET("/profile", profileHandler.Get)
			authed.GET("/profile/stream", profileHandler.Stream)
			authed.PUT("/profile", profileHandler.Complete)
			authed.PUT("/profile/image", profileHandler.UpdateImage)
			authed.PUT("/goals", profileHandler.SetGoals)
			authed.PUT("/workouts", profileHandler.SaveWorkouts)

			authed.GET("/addresses", addressHandler.List)
			authed.POST("/addresses", addressHandler.Add)
			authed.DELETE("/addresses/:id", addressHandler.Delete)

			authed.GET("/cart", shoppingHandler.Cart)
			authed.POST("/cart/items", shoppingHandler.AddToCart)

			authed.GET("/membership", membershipHandler.Status)
			authed.POST("/membership/checkout", membershipHandler.Checkout)
			authed.POST("/sessions/book", membershipHandler.BookSession)
		}
	}

	return r
}
