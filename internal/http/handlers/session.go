package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"imagestudio/internal/domain"
)

type loginRequest struct {
	APIKey string `json:"api_key"`
}

func (a *App) State(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.respond(w, r, sess, nil)
}

// Login runs the credential gate. The validation call is not tied to the
// request context so a closed tab does not abort it.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respond(w, r, sess, domain.Validation(domain.CodeBadRequest))
		return
	}
	_, err := sess.Gate.Submit(context.WithoutCancel(r.Context()), req.APIKey)
	a.respond(w, r, sess, err)
}

// Logout drops the credential and clears the workspace with it.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	sess.Gate.Logout()
	sess.Workspace.Reset()
	a.log(r).Info().Msg("session: logged out")
	a.respond(w, r, sess, nil)
}
