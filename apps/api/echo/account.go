package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/auth"
)

type accountApi struct {
	svc    *account.Service
	issuer *auth.TokenIssuer
	gate   *auth.Gate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := accountApi{
		svc:    opts.AccountSvc,
		issuer: opts.Issuer,
		gate:   opts.Gate,
	}

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)

	// authed endpoints
	authed := ag.Group("", jwt)
	authed.POST("/token-refresh", api.refreshToken)
	authed.GET("", api.query)
	authed.GET("/:id", api.retrieve)
	authed.PUT("/:id", api.update)
	authed.DELETE("/:id", api.destroy)
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	acct, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	return ctx.JSON(http.StatusCreated, acct)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	acct, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}

	token, expiresAt, err := api.issuer.Issue(acct)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt, Account: acct.Public()})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	acct, err := api.svc.GetByID(ctx.Request().Context(), claims.AccountID)
	if err != nil {
		return errors.Wrap(err, "finding account by ID")
	}

	token, expiresAt, err := api.issuer.Refresh(acct, claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (api *accountApi) query(ctx echo.Context) error {
	if err := authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindAccount}); err != nil {
		return err
	}

	filter := new(account.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.Account{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accts, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accts == nil {
		accts = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accts)
}

func (api *accountApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindAccount, ID: id, AccountID: id}); err != nil {
		return err
	}

	acct, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionUpdate, auth.Target{Kind: auth.KindAccount, ID: id, AccountID: id}); err != nil {
		return err
	}

	acct, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	var data account.UpdateAccount
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAccount")
	}
	if err = data.Validate(acct, api.svc); err != nil {
		return err
	}

	acct, err = api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionDelete, auth.Target{Kind: auth.KindAccount, ID: id, AccountID: id}); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
