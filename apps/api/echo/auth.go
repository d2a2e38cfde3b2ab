package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
)

var contextClaimsKey = "claims"

// jwtMiddleware extracts the bearer token, validates it and stores the claims
// in the request context. Token failures short-circuit with 401.
func jwtMiddleware(issuer *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return errUnauthorized
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return errUnauthorized
			}

			claims, err := issuer.Validate(parts[1])
			if err != nil {
				return err
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (auth.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(auth.Claims); ok {
		return claims, nil
	}
	return auth.Claims{}, errUnauthorized
}

// authorize consults the gate and translates a denial to the matching HTTP
// failure: 401 when unauthenticated, 403 otherwise.
func authorize(ctx echo.Context, gate *auth.Gate, action auth.Action, target auth.Target) error {
	claims, _ := getContextClaims(ctx) // zero claims read as unauthenticated

	decision, err := gate.Authorize(ctx.Request().Context(), claims, action, target)
	if err != nil {
		return errors.Wrap(err, "authorizing")
	}
	if decision.Allowed {
		return nil
	}
	if decision.Reason == auth.ReasonUnauthenticated {
		return errUnauthorized
	}
	return echo.NewHTTPError(http.StatusForbidden, "permission denied: "+decision.Reason)
}
