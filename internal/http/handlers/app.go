package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"imagestudio/internal/domain"
	"imagestudio/internal/i18n"
	"imagestudio/internal/middleware"
	"imagestudio/internal/session"
)

// ImageFetcher downloads a generated image for the download proxy.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) (io.ReadCloser, string, error)
}

type App struct {
	Logger   zerolog.Logger
	Sessions *session.Store
	Images   ImageFetcher
}

func NewApp(logger zerolog.Logger, sessions *session.Store, images ImageFetcher) *App {
	return &App{Logger: logger, Sessions: sessions, Images: images}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes a bare error body for requests that have no session to render.
func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, map[string]string{"code": code, "error": msg})
}

// respond writes the session snapshot. When err is non-nil it decides the
// status and becomes the error shown, replacing any stored one.
func (a *App) respond(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	if err == nil {
		a.json(w, http.StatusOK, buildState(locale, sess, nil))
		return
	}
	de := domain.AsError(err)
	if de.Kind == domain.KindUnexpected {
		a.log(r).Error().Err(de).Msg("handler: unexpected failure")
	}
	a.json(w, statusFor(de), buildState(locale, sess, de))
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		locale := middleware.LocaleFromContext(r.Context())
		a.error(w, http.StatusInternalServerError, domain.CodeUnexpected, i18n.Message(locale, domain.CodeUnexpected))
		return nil, false
	}
	return sess, true
}

func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

// RequireCredential rejects workspace calls from sessions that have not
// passed the gate.
func (a *App) RequireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := a.session(w, r)
		if !ok {
			return
		}
		if _, ok := sess.Gate.Credential(); !ok {
			a.respond(w, r, sess, domain.Unauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func statusFor(err *domain.Error) int {
	switch err.Kind {
	case domain.KindValidation:
		switch err.Code {
		case domain.CodeBadRequest:
			return http.StatusBadRequest
		case domain.CodeNoGeneratedImage:
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case domain.KindProvider:
		if err.Code == domain.CodeInvalidKey {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case domain.KindNetwork:
		return http.StatusBadGateway
	case domain.KindBusy:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
