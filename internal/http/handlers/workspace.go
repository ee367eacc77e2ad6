package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"imagestudio/internal/domain"
	"imagestudio/internal/middleware"
	"imagestudio/internal/session"
	"imagestudio/internal/studio"
)

// Multipart parts above this size spill to temporary files; uploads are not
// otherwise limited.
const uploadMemory = 32 << 20

const downloadFilename = "generated-image.png"

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (a *App) UploadImages(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		a.reject(w, r, sess, domain.Validation(domain.CodeBadRequest))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["images"]
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		u, err := encodePart(fh)
		if err != nil {
			a.reject(w, r, sess, err)
			return
		}
		urls = append(urls, u)
	}
	_, err := sess.Workspace.AddImages(urls...)
	a.respond(w, r, sess, err)
}

// reject records err as the workspace's current error before responding.
func (a *App) reject(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	sess.Workspace.RecordError(err)
	a.respond(w, r, sess, err)
}

func encodePart(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", domain.Unexpected(fmt.Errorf("open upload %q: %w", fh.Filename, err))
	}
	defer f.Close()
	return studio.EncodeDataURL(f, fh.Header.Get("Content-Type"))
}

func (a *App) RemoveImage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.reject(w, r, sess, domain.Validation(domain.CodeInvalidIndex))
		return
	}
	_, err = sess.Workspace.RemoveImage(index)
	a.respond(w, r, sess, err)
}

func (a *App) SetPrompt(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.reject(w, r, sess, domain.Validation(domain.CodeBadRequest))
		return
	}
	_, err := sess.Workspace.SetPrompt(req.Prompt)
	a.respond(w, r, sess, err)
}

// Generate runs both provider calls before responding. Like Login it is
// detached from request cancellation.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	key, _ := sess.Gate.Credential()
	_, err := sess.Workspace.Generate(context.WithoutCancel(r.Context()), key)
	a.respond(w, r, sess, err)
}

func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	sess.Workspace.Reset()
	a.respond(w, r, sess, nil)
}

// DownloadImage proxies the generated image so the browser saves it under a
// fixed filename regardless of the provider's URL.
func (a *App) DownloadImage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	url := sess.Workspace.Snapshot().GeneratedURL
	if url == "" {
		a.respond(w, r, sess, domain.Validation(domain.CodeNoGeneratedImage))
		return
	}
	body, contentType, err := a.Images.FetchImage(r.Context(), url)
	if err != nil {
		a.respond(w, r, sess, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil && !errors.Is(err, context.Canceled) {
		a.log(r).Warn().Err(err).Msg("download: copy interrupted")
	}
}
