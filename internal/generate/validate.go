package generate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ent0n29/kittenweb/internal/config"
)

// Request is one generation request as received from a client, before
// validation.
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Validation error codes.
const (
	CodeEmptyText       = "empty_text"
	CodeTextTooLong     = "text_too_long"
	CodeUnknownVoice    = "unknown_voice"
	CodeSpeedOutOfRange = "speed_out_of_range"
)

// ValidationError is a rejected request. Message is safe to show to users.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Rules holds the read-only input constraints shared by all requests.
type Rules struct {
	MaxTextLength int
	Voices        []string
	MinSpeed      float64
	MaxSpeed      float64
}

func RulesFromConfig(cfg config.Config) Rules {
	return Rules{
		MaxTextLength: cfg.MaxTextLength,
		Voices:        cfg.Voices,
		MinSpeed:      cfg.MinSpeed,
		MaxSpeed:      cfg.MaxSpeed,
	}
}

// NormalizeText collapses whitespace runs to single spaces and trims the
// ends, matching what the synthesis backend expects.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Validate normalizes the request text and checks it against the rules. It
// has no side effects; the returned request is the one to synthesize.
func (r Rules) Validate(req Request) (Request, error) {
	req.Text = NormalizeText(req.Text)

	if req.Text == "" {
		return Request{}, &ValidationError{Code: CodeEmptyText, Message: "Text is required"}
	}
	// The ceiling counts characters, not bytes; multi-byte text must not be
	// rejected early.
	if utf8.RuneCountInString(req.Text) > r.MaxTextLength {
		return Request{}, &ValidationError{
			Code:    CodeTextTooLong,
			Message: fmt.Sprintf("Text is too long (max %d characters)", r.MaxTextLength),
		}
	}
	if !r.knownVoice(req.Voice) {
		return Request{}, &ValidationError{
			Code:    CodeUnknownVoice,
			Message: fmt.Sprintf("Invalid voice: %s", req.Voice),
		}
	}
	if req.Speed < r.MinSpeed || req.Speed > r.MaxSpeed {
		return Request{}, &ValidationError{
			Code:    CodeSpeedOutOfRange,
			Message: fmt.Sprintf("Speed must be between %g and %g", r.MinSpeed, r.MaxSpeed),
		}
	}
	return req, nil
}

func (r Rules) knownVoice(voice string) bool {
	for _, v := range r.Voices {
		if v == voice {
			return true
		}
	}
	return false
}
