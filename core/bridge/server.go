package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/leofalp/agentspace/core/session"
	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/observability"
)

// maxBodySize caps request bodies; a turn's text is the largest field.
const maxBodySize = 1 << 20

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithObserver sets the observability provider used for request logging.
func WithObserver(observer observability.Provider) Option {
	return func(server *Server) {
		server.observer = observer
	}
}

// WithBaseContext sets the context background turns run under. Cancelling
// it cancels every running turn.
func WithBaseContext(ctx context.Context) Option {
	return func(server *Server) {
		server.baseCtx = ctx
	}
}

// WithCheckOrigin replaces the websocket origin check. By default only
// same-host origins are accepted.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(server *Server) {
		server.upgrader.CheckOrigin = check
	}
}

// Server serves one Session.
type Server struct {
	session  *session.Session
	observer observability.Provider
	baseCtx  context.Context
	upgrader websocket.Upgrader
	turns    sync.WaitGroup
}

func New(sess *session.Session, opts ...Option) *Server {
	server := &Server{
		session: sess,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(server)
	}
	return server
}

// Router returns the chi router serving every route.
func (server *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(server.logRequests)

	router.Route("/api", func(api chi.Router) {
		api.Get("/providers", server.handleProviders)
		api.Get("/state", server.handleState)
		api.Post("/turns", server.handleSubmit)
		api.Put("/selection", server.handleSelection)
		api.Put("/mode", server.handleMode)
		api.Put("/input", server.handleInput)
	})
	router.Get("/ws", server.handleWebsocket)
	return router
}

// Wait blocks until every background turn started by the server returned.
func (server *Server) Wait() {
	server.turns.Wait()
}

type textRequest struct {
	Text string `json:"text"`
}

type selectionRequest struct {
	Providers []string `json:"providers"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (server *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": server.session.Providers()})
}

func (server *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, server.session.Snapshot())
}

func (server *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var request textRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if err := server.submit(request.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, server.session.Snapshot())
}

func (server *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var request selectionRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if err := server.session.SetSelectedModels(request.Providers); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, server.session.Snapshot())
}

func (server *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var request modeRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if err := server.setMode(request.Mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, server.session.Snapshot())
}

func (server *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var request textRequest
	if !decodeBody(w, r, &request) {
		return
	}
	server.session.SetInput(request.Text)
	writeJSON(w, http.StatusOK, server.session.Snapshot())
}

// submit starts a turn in the background. Empty text submits the pending
// input set through the input route or command; when that is blank too the
// call does nothing. An empty selection is reported right away.
func (server *Server) submit(text string) error {
	fromInput := strings.TrimSpace(text) == ""
	if fromInput && strings.TrimSpace(server.session.Snapshot().Input) == "" {
		return nil
	}
	if len(server.session.SelectedModels()) == 0 {
		return session.ErrNoProviderSelected
	}

	server.turns.Add(1)
	go func() {
		defer server.turns.Done()
		var err error
		if fromInput {
			err = server.session.SubmitInput(server.baseCtx)
		} else {
			err = server.session.SubmitTurn(server.baseCtx, text)
		}
		if err != nil && server.observer != nil {
			server.observer.Error(server.baseCtx, "Turn failed", observability.Error(err))
		}
	}()
	return nil
}

func (server *Server) setMode(value string) error {
	mode, err := ai.ParseMode(value)
	if err != nil {
		return fmt.Errorf("%w: %w", session.ErrInvalidMode, err)
	}
	return server.session.SetMode(mode)
}

func (server *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if server.observer == nil {
			next.ServeHTTP(w, r)
			return
		}
		started := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		server.observer.Debug(r.Context(), "HTTP request",
			observability.String(observability.AttrHTTPMethod, r.Method),
			observability.String(observability.AttrHTTPURL, r.URL.Path),
			observability.Int(observability.AttrHTTPStatusCode, wrapped.Status()),
			observability.Duration(observability.AttrHTTPDuration, time.Since(started)),
			observability.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := decoder.Decode(target); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownProvider), errors.Is(err, session.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoProviderSelected), errors.Is(err, session.ErrTooManyProviders):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    http.StatusText(status),
			"message": message,
		},
	})
}
