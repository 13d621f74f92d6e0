package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ent0n29/kittenweb/internal/generate"
)

type generateRequest struct {
	Text  string   `json:"text"`
	Voice string   `json:"voice"`
	Speed *float64 `json:"speed"`
}

// decodeGenerateRequest reads the JSON body and applies the same defaults
// the original service used: missing voice means the configured default,
// missing speed means 1.0. A missing body validates as empty text.
func (s *Server) decodeGenerateRequest(r *http.Request) (generate.Request, error) {
	var body generateRequest
	if err := decodeJSON(r, &body); err != nil {
		if errors.Is(err, errEmptyBody) {
			return generate.Request{}, nil
		}
		return generate.Request{}, fmt.Errorf("Invalid JSON payload")
	}

	req := generate.Request{
		Text:  body.Text,
		Voice: strings.TrimSpace(body.Voice),
		Speed: 1.0,
	}
	if req.Voice == "" {
		req.Voice = s.cfg.DefaultVoice
	}
	if body.Speed != nil {
		req.Speed = *body.Speed
	}
	return req, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.svc.Generate(r.Context(), req, generate.ModeDownload)
	if err != nil {
		s.respondGenerateError(w, err)
		return
	}
	defer result.Cleanup()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(result.WAV)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.WAV)
}

type streamResponse struct {
	Success    bool   `json:"success"`
	Audio      string `json:"audio"`
	Voice      string `json:"voice"`
	Text       string `json:"text"`
	DurationMS int64  `json:"duration_ms"`
}

func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.svc.Generate(r.Context(), req, generate.ModeStream)
	if err != nil {
		s.respondGenerateError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, streamResponse{
		Success:    true,
		Audio:      result.DataURI,
		Voice:      result.Voice,
		Text:       result.Text,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// respondGenerateError maps validation failures to 400 and everything else
// (engine failures) to 500, always with a readable message.
func (s *Server) respondGenerateError(w http.ResponseWriter, err error) {
	var verr *generate.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Code, verr.Message)
		return
	}
	respondError(w, http.StatusInternalServerError, "synthesis_failed", err.Error())
}

type speedBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type voicesResponse struct {
	Voices        []string    `json:"voices"`
	DefaultVoice  string      `json:"default_voice"`
	MaxTextLength int         `json:"max_text_length"`
	Speed         speedBounds `json:"speed"`
}

// handleVoices exposes the validator's actual rule set so the browser form
// mirrors server rules from one source instead of duplicated constants.
func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	rules := s.svc.Rules()
	respondJSON(w, http.StatusOK, voicesResponse{
		Voices:        rules.Voices,
		DefaultVoice:  s.cfg.DefaultVoice,
		MaxTextLength: rules.MaxTextLength,
		Speed:         speedBounds{Min: rules.MinSpeed, Max: rules.MaxSpeed},
	})
}
