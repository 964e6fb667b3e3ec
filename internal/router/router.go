// Package router assembles the Echo instance: global middleware, the
// error handler and every route of the API.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tour-booking-api/internal/config"
	"github.com/iliyamo/tour-booking-api/internal/handler"
	"github.com/iliyamo/tour-booking-api/internal/middleware"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/service"
)

// BodyLimit caps JSON request bodies.
const BodyLimit = "10K"

// Deps are the collaborators routes are wired to. DB and Redis may be nil:
// health then skips the ping and rate limiting/caching degrade.
type Deps struct {
	Development bool
	Production  bool
	CookieDays  int
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig

	Auth    *service.AuthService
	Tours   *service.TourService
	Users   *service.UserService
	Reviews *service.ReviewService

	DB    handler.Pinger
	Redis *redis.Client
}

// New returns a configured Echo instance with all routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handler.JSONSerializer{}
	e.HTTPErrorHandler = handler.ErrorHandler(d.Development)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.RequestLogger(),
		echomw.RecoverWithConfig(echomw.RecoverConfig{LogErrorFunc: handler.RecoverPanic}),
		echomw.Secure(),
		echomw.BodyLimit(BodyLimit),
		middleware.ParameterPollution(middleware.HPPWhitelist...),
		middleware.Sanitize(),
	)

	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes registers health, metrics and the /api/v1 resources.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api", middleware.NewTokenBucket(d.RateLimit, d.Redis))
	v1 := api.Group("/v1")
	protect := middleware.Protect(d.Auth)

	registerTours(v1, d, protect)
	registerUsers(v1, d, protect)
	registerReviews(v1, d, protect)
}

func registerTours(v1 *echo.Group, d Deps, protect echo.MiddlewareFunc) {
	th := handler.NewTourHandler(d.Tours)
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	staff := middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)
	res := handler.TourResource

	g := v1.Group("/tours")
	g.GET("/top-5-cheap", handler.GetAll(res, d.Tours.List), handler.AliasTopTours)
	g.GET("/tour-stats", th.Stats, cache)
	g.GET("/monthly-plan/:year", th.MonthlyPlan,
		protect, middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide, model.RoleGuide), cache)
	g.GET("/tours-within/:distance/center/:latlng/unit/:unit", th.Within)
	g.GET("/distances/:latlng/unit/:unit", th.Distances)

	g.GET("", handler.GetAll(res, d.Tours.List))
	g.POST("", handler.CreateOne(res, d.Tours.Create), protect, staff)
	g.GET("/:id", handler.GetOne(res, d.Tours.Get))
	g.PATCH("/:id", handler.UpdateOne(res, d.Tours.Update), protect, staff)
	g.DELETE("/:id", handler.DeleteOne(res, d.Tours.Delete), protect, staff)

	// nested reviews
	rres := handler.ReviewResource
	g.GET("/:tourId/reviews", handler.GetAll(rres, d.Reviews.List, handler.ReviewsOfTour), protect)
	g.POST("/:tourId/reviews", handler.CreateOne(rres, d.Reviews.Create, handler.SetTourUser),
		protect, middleware.RestrictTo(model.RoleUser))
}

func registerUsers(v1 *echo.Group, d Deps, protect echo.MiddlewareFunc) {
	ah := handler.NewAuthHandler(d.Auth, d.CookieDays, d.Production)
	uh := handler.NewUserHandler(d.Users)
	res := handler.UserResource

	g := v1.Group("/users")
	g.POST("/signup", ah.Signup)
	g.POST("/login", ah.Login)
	g.GET("/logout", ah.Logout)
	g.POST("/forgotPassword", ah.ForgotPassword)
	g.PATCH("/resetPassword/:token", ah.ResetPassword)

	g.PATCH("/updateMyPassword", ah.UpdatePassword, protect)
	g.GET("/me", uh.Me, protect)
	g.PATCH("/me", uh.UpdateMe, protect)
	g.DELETE("/me", uh.DeleteMe, protect)
	g.PATCH("/updateMe", uh.UpdateMe, protect)
	g.DELETE("/deleteMe", uh.DeleteMe, protect)

	admin := middleware.RestrictTo(model.RoleAdmin)
	g.GET("", handler.GetAll(res, d.Users.List), protect, admin)
	g.POST("", handler.CreateOne(res, d.Users.Create), protect, admin)
	g.GET("/:id", handler.GetOne(res, d.Users.Get), protect, admin)
	g.PATCH("/:id", handler.UpdateOne(res, d.Users.Update), protect, admin)
	g.DELETE("/:id", handler.DeleteOne(res, d.Users.Delete), protect, admin)
}

func registerReviews(v1 *echo.Group, d Deps, protect echo.MiddlewareFunc) {
	res := handler.ReviewResource
	author := middleware.RestrictTo(model.RoleUser, model.RoleAdmin)

	g := v1.Group("/reviews", protect)
	g.GET("", handler.GetAll(res, d.Reviews.List, handler.ReviewsOfTour))
	g.POST("", handler.CreateOne(res, d.Reviews.Create, handler.SetTourUser), middleware.RestrictTo(model.RoleUser))
	g.GET("/:id", handler.GetOne(res, d.Reviews.Get))
	g.PATCH("/:id", handler.UpdateOne(res, d.Reviews.Update), author)
	g.DELETE("/:id", handler.DeleteOne(res, d.Reviews.Delete), author)
}
