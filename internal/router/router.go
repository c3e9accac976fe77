package router

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"storefront/internal/config"
	"storefront/internal/errors"
	"storefront/internal/handler"
	"storefront/internal/logger"
	"storefront/internal/metrics"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Category *handler.CategoryHandler
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
	Health   *handler.HealthHandler
}

// Register wires routes and middleware. authMW is the Auth Gate applied to
// protected routes.
func Register(e *echo.Echo, cfg *config.Config, log logrus.FieldLogger, h Handlers, authMW echo.MiddlewareFunc) {
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler(log)
	e.Validator = NewValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(logger.Middleware(log))
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/healthz", h.Health.Healthz)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/api-docs/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Credential endpoints are rate limited per client IP
	limiter := authRateLimiter(cfg)
	api.POST("/register", h.Auth.Register, limiter)
	api.POST("/login", h.Auth.Login, limiter)
	api.POST("/logout", h.Auth.Logout, authMW)

	// Profile
	api.GET("/profile", h.User.GetProfile, authMW)
	api.PUT("/profile", h.User.UpdateProfile, authMW)
	api.DELETE("/profile", h.User.DeleteProfile, authMW)

	// Catalog: reads are public, writes need a token
	api.GET("/category", h.Category.ListCategories)
	api.POST("/category", h.Category.CreateCategory, authMW)
	api.PUT("/category/:id", h.Category.UpdateCategory, authMW)
	api.DELETE("/category/:id", h.Category.DeleteCategory, authMW)

	api.GET("/product", h.Product.ListProducts)
	api.GET("/product/:id", h.Product.GetProduct)
	api.POST("/product", h.Product.CreateProduct, authMW)
	api.PUT("/product/:id", h.Product.UpdateProduct, authMW)
	api.DELETE("/product/:id", h.Product.DeleteProduct, authMW)

	// Orders
	api.POST("/orders", h.Order.CreateOrder, authMW)
	api.GET("/orders", h.Order.ListOrders, authMW)
	api.GET("/orders/:id", h.Order.GetOrder, authMW)
	api.DELETE("/order/:id", h.Order.CancelOrder, authMW)
}

func authRateLimiter(cfg *config.Config) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.AuthRateLimit),
		Burst:     cfg.AuthRateBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "unable to identify client",
				Code:  "FORBIDDEN",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
		},
	})
}

// ErrorHandler renders every error as an ErrorResponse. Server-side causes
// are logged with the request id and never reach the client.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he, ok := err.(*echo.HTTPError)
		if !ok {
			httpErr := errors.MapErrorToHTTP(err)
			he = &echo.HTTPError{Code: httpErr.StatusCode, Message: httpErr.ToErrorResponse(), Internal: err}
		}

		if he.Code >= http.StatusInternalServerError {
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			log.WithError(cause).WithFields(logrus.Fields{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"method":     c.Request().Method,
				"path":       c.Path(),
			}).Error("request failed")
		}

		body := he.Message
		if msg, ok := he.Message.(string); ok {
			body = errors.ErrorResponse{Error: strings.ToLower(msg), Code: statusCode(he.Code)}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}

// statusCode turns an HTTP status into an ErrorResponse code, e.g. 404 into NOT_FOUND.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds a CustomValidator that names fields by their json tag.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface. Failures read as one
// client-facing sentence per field, e.g. "email is required".
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return stderrors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	default:
		return fe.Field() + " is invalid"
	}
}
