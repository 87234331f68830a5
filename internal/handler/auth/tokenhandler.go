// Package auth exposes the token endpoints used when authentication is
// enabled.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/voxloop/vox/internal/httputil"
	"github.com/voxloop/vox/internal/svc"
)

type tokenRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"client_secret"`
}

// TokenHandler issues an access/refresh pair to clients presenting the
// shared secret.
func TokenHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := httputil.ParseJSON(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ClientID == "" {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "client_id is required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(svcCtx.Config.Auth.Secret)) != 1 {
			httputil.Unauthorized(w, "invalid client secret")
			return
		}

		pair, err := svcCtx.Auth.IssuePair(req.ClientID)
		if err != nil {
			httputil.ErrorWithCode(w, http.StatusInternalServerError, "failed to issue tokens")
			return
		}
		httputil.OkJSON(w, pair)
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshHandler exchanges a refresh token for a fresh pair.
func RefreshHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := httputil.ParseJSON(r, &req); err != nil || req.RefreshToken == "" {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		pair, err := svcCtx.Auth.Refresh(req.RefreshToken)
		if err != nil {
			httputil.Unauthorized(w, "invalid refresh token")
			return
		}
		httputil.OkJSON(w, pair)
	}
}
