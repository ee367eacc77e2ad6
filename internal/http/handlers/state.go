package handlers

import (
	"imagestudio/internal/domain"
	"imagestudio/internal/i18n"
	"imagestudio/internal/session"
	"imagestudio/internal/studio"
)

type imageView struct {
	Index   int    `json:"index"`
	DataURL string `json:"data_url"`
}

type stateView struct {
	Authenticated     bool        `json:"authenticated"`
	Validating        bool        `json:"validating"`
	Generating        bool        `json:"generating"`
	Stage             string      `json:"stage"`
	Images            []imageView `json:"images"`
	Prompt            string      `json:"prompt"`
	MaxPromptLength   int         `json:"max_prompt_length"`
	GeneratedImageURL string      `json:"generated_image_url"`
	Error             string      `json:"error,omitempty"`
}

// buildState merges gate and workspace into the page's view. The gate's error
// shows until the session is authenticated, the workspace's afterwards.
func buildState(locale string, sess *session.Session, override *domain.Error) stateView {
	gs := sess.Gate.Snapshot()
	ws := sess.Workspace.Snapshot()

	view := stateView{
		Authenticated:     gs.Authenticated,
		Validating:        gs.Validating,
		Generating:        ws.Generating,
		Stage:             string(ws.Stage),
		Images:            make([]imageView, 0, len(ws.Images)),
		Prompt:            ws.Prompt,
		MaxPromptLength:   studio.MaxPromptLength,
		GeneratedImageURL: ws.GeneratedURL,
	}
	for i, u := range ws.Images {
		view.Images = append(view.Images, imageView{Index: i, DataURL: u})
	}

	shown := override
	if shown == nil {
		if gs.Authenticated {
			shown = ws.Err
		} else {
			shown = gs.Err
		}
	}
	view.Error = i18n.Render(locale, shown)
	return view
}
