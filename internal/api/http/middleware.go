package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"github.com/mns-opti/ticket-bridge/internal/config"
	"github.com/mns-opti/ticket-bridge/internal/observability"
	apperrors "github.com/mns-opti/ticket-bridge/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares: security headers, CORS,
// rate limiting, request timeout, error rendering and request logging.
// limiterStore may be nil, which keeps the limiter on its in-memory store.
func RegisterMiddlewares(app *fiber.App, cfg config.HTTPConfig, timeout time.Duration, limiterStore fiber.Storage, logger *zap.Logger, metrics *observability.Metrics) {
	app.Use(helmet.New())

	corsCfg := cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = strings.Join(cfg.AllowedOrigins, ",")
	}
	app.Use(cors.New(corsCfg))

	limiterCfg := limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Duration(cfg.RateLimitWindowS) * time.Second,
	}
	if limiterStore != nil {
		limiterCfg.Storage = limiterStore
	}
	app.Use(limiter.New(limiterCfg))

	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	// logger outside the error renderer so it observes the rendered status,
	// not the pre-error 200
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders every error into the single wire shape
// {ok:false, code, error, ...extra} and recovers panics.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewServerError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				response := fiber.Map{
					"ok":    false,
					"code":  domainErr.Code,
					"error": domainErr.Message,
				}
				for key, val := range domainErr.Extra {
					response[key] = val
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}
