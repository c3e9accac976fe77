package auth

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"storefront/internal/errors"
)

// Middleware returns the Auth Gate: it reads "Authorization: Bearer <token>",
// validates the token, rejects revoked ones, and attaches the caller to both
// the echo context and the request context. Every failure answers the same 401.
func Middleware(jwtService *JWTService, tokenStore TokenStoreInterface) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ClaimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, err
			}
			if tokenStore != nil {
				revoked, err := tokenStore.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					return nil, err
				}
				if revoked {
					return nil, errors.ErrInvalidToken
				}
			}
			c.SetRequest(c.Request().WithContext(WithUserID(c.Request().Context(), claims.UserID)))
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			httpErr := errors.MapErrorToHTTP(errors.ErrInvalidToken)
			return echo.NewHTTPError(http.StatusUnauthorized, httpErr.ToErrorResponse())
		},
	})
}
