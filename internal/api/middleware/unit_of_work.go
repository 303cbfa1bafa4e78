package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/core/ports"
)

const ContextKeyUnitOfWork = "uow"

// UnitOfWork gives each request its own unit of work and closes it once the
// handler returns, discarding whatever the handler did not save.
func UnitOfWork(factory ports.UnitOfWorkFactory, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := factory.NewUnitOfWork()
			defer func() {
				if err := u.Close(); err != nil {
					log.Warn().Err(err).Str("path", c.Path()).Msg("closing unit of work")
				}
			}()

			c.Set(ContextKeyUnitOfWork, u)
			return next(c)
		}
	}
}

// UnitOfWorkFrom returns the request's unit of work, or nil when the
// middleware did not run.
func UnitOfWorkFrom(c echo.Context) ports.UnitOfWork {
	u, _ := c.Get(ContextKeyUnitOfWork).(ports.UnitOfWork)
	return u
}
