package controllers

import (
	"context"
	"net/http"

	"github.com/eventprosnz/eventpros-backend/api/middleware"
	"github.com/eventprosnz/eventpros-backend/api/responses"
	"github.com/eventprosnz/eventpros-backend/api/validators"
	"github.com/eventprosnz/eventpros-backend/internal/auth"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
)

var errAuthUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")

// tokenEndpoint decodes a Req body, hands it to call and writes the token
// response with status.
func tokenEndpoint[Req any](ready bool, status int, call func(context.Context, Req) (*auth.TokenResponse, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !ready {
			responses.WriteError(ctx, logg, w, errAuthUnavailable)
			return
		}
		var body Req
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tokens, err := call(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, tokens)
	}
}

// AuthRegister creates the account and signs the new user straight in.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	signUp := func(ctx context.Context, req auth.RegisterRequest) (*auth.TokenResponse, error) {
		if _, err := reg.Register(ctx, req); err != nil {
			return nil, err
		}
		return svc.Login(ctx, auth.LoginRequest{Email: req.Email, Password: req.Password})
	}
	return tokenEndpoint(reg != nil && svc != nil, http.StatusCreated, signUp, logg)
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return tokenEndpoint[auth.LoginRequest](false, http.StatusOK, nil, logg)
	}
	return tokenEndpoint(true, http.StatusOK, svc.Login, logg)
}

// AuthRefresh rotates the refresh token and issues a new access token.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return tokenEndpoint[auth.RefreshRequest](false, http.StatusOK, nil, logg)
	}
	return tokenEndpoint(true, http.StatusOK, svc.Refresh, logg)
}

// AuthLogout revokes the session behind the presented access token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
