package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/alexjbarnes/npbtn/internal/auth"
	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
	"github.com/alexjbarnes/npbtn/internal/nowplaying"
	"github.com/alexjbarnes/npbtn/internal/share"
	"github.com/alexjbarnes/npbtn/internal/token"
)

// HandleAuth starts an authorization flow and redirects the browser to
// the provider.
func HandleAuth(a *auth.Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := a.Begin()
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// HandleCallback completes a flow when the provider redirects back and
// hands the encoded token to the landing page.
func HandleCallback(a *auth.Authorizer, codec *token.Codec, landingPath string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		tok, err := a.Complete(r.Context(), auth.CallbackParams{
			Code:             q.Get("code"),
			State:            q.Get("state"),
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		opaque, err := codec.Encode(token.FromOAuth2(tok))
		if err != nil {
			writeError(w, r, logger, fmt.Errorf("encoding token: %w", err))
			return
		}

		logger.Info("authorization completed",
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.String("ip", remoteIP(r)),
		)

		target := landingPath + "?" + url.Values{"token": {opaque}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// tokenParam returns the token query parameter, or ErrInvalidRequest
// when it is absent.
func tokenParam(r *http.Request) (string, error) {
	t := r.URL.Query().Get("token")
	if t == "" {
		return "", fmt.Errorf("%w: missing token", apperrors.ErrInvalidRequest)
	}

	return t, nil
}

// HandleNowPlaying reports the current track as JSON, or null when
// nothing projectable is playing.
func HandleNowPlaying(svc *nowplaying.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opaque, err := tokenParam(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		np, err := svc.Query(r.Context(), opaque)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, np)
	}
}

// HandleShare redirects to the post composer prefilled with the current
// track. Nothing playing yields 204.
func HandleShare(svc *nowplaying.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opaque, err := tokenParam(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		np, err := svc.Query(r.Context(), opaque)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		if np == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		http.Redirect(w, r, share.IntentURL(np), http.StatusFound)
	}
}

// HandleHealth reports liveness and the number of pending flows.
func HandleHealth(store *auth.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"pending_flows": store.Len(),
		})
	}
}
