package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gaspardpetit/promptrelay/internal/gemini"
	"github.com/gaspardpetit/promptrelay/internal/logx"
	"github.com/gaspardpetit/promptrelay/internal/metrics"
)

const (
	// ErrorMessage is the only failure detail a caller ever receives.
	ErrorMessage         = "Hubo un error al procesar tu pregunta."
	MissingPromptMessage = "No se recibió ningún prompt."
	MethodNotAllowedBody = "Method Not Allowed"

	// MaxBodyBytes caps the inbound payload. Larger bodies are malformed.
	MaxBodyBytes = 1 << 20
)

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Handler relays a prompt to the provider and returns the generated text.
type Handler struct {
	gen     Generator
	model   string
	timeout time.Duration
	onError func(*http.Request, *Error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout bounds each provider call. Zero leaves the transport default.
func WithTimeout(d time.Duration) Option { return func(h *Handler) { h.timeout = d } }

// WithModel sets the model label used in metrics.
func WithModel(m string) Option { return func(h *Handler) { h.model = m } }

// WithErrorHook registers fn to observe every failure that ends in a 500.
func WithErrorHook(fn func(*http.Request, *Error)) Option {
	return func(h *Handler) { h.onError = fn }
}

// New returns a Handler backed by gen.
func New(gen Generator, opts ...Option) *Handler {
	h := &Handler{gen: gen}
	for _, o := range opts {
		o(h)
	}
	return h
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		metrics.RecordRequest(metrics.OutcomeMethodNotAllowed)
		w.Header().Set("Allow", http.MethodPost)
		writeText(w, http.StatusMethodNotAllowed, MethodNotAllowedBody)
		return
	}

	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	}
	prompt, err := readPrompt(r.Body)
	if err != nil {
		h.fail(w, r, &Error{Kind: KindMalformedPayload, Err: err})
		return
	}
	if prompt == "" {
		metrics.RecordRequest(metrics.OutcomeMissingPrompt)
		writeText(w, http.StatusBadRequest, MissingPromptMessage)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := h.gen.GenerateText(ctx, prompt)
	metrics.ObserveProviderDuration(h.model, err == nil, time.Since(start))
	if err != nil {
		h.fail(w, r, &Error{Kind: classify(err), Err: err})
		return
	}

	metrics.RecordRequest(metrics.OutcomeOK)
	writeJSON(w, http.StatusOK, chatResponse{Response: text})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, e *Error) {
	ev := logx.Log.Error().Str("request_id", chiMiddleware.GetReqID(r.Context())).Str("kind", e.Kind.String())
	var se *gemini.StatusError
	if errors.As(e.Err, &se) {
		ev = ev.Int("provider_status", se.StatusCode).Str("provider_body", se.Body)
	}
	ev.Err(e.Err).Msg("relay failed")
	metrics.RecordRequest(e.Kind.String())
	if h.onError != nil {
		h.onError(r, e)
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: ErrorMessage})
}

var errNullBody = errors.New("request body is null")

// readPrompt returns the prompt carried by body. An empty string with a nil
// error means the body parsed but holds no usable prompt.
func readPrompt(body io.Reader) (string, error) {
	if body == nil {
		return "", errNullBody
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return "", err
	}
	if v == nil {
		return "", errNullBody
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return "", nil
	}
	// null, false, 0 and non-string values all count as missing
	p, _ := obj["prompt"].(string)
	return p, nil
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		logx.Log.Error().Err(err).Msg("write response")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logx.Log.Error().Err(err).Msg("encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n")); err != nil {
		logx.Log.Error().Err(err).Msg("write response")
	}
}
