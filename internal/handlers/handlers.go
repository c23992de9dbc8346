package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"strings"
	"time"

	"task-manager/internal/auth"
	"task-manager/internal/logutil"
	"task-manager/internal/models"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"

	maxBodyBytes = 1 << 20

	fieldUsername = "usuario"
	fieldPassword = "contraseña"

	dateLayout = "02/01/2006 15:04:05"
)

// Authenticator is the authentication core used by the handlers.
type Authenticator interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, *models.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// UserCounter reports how many users are registered.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// Options configures Handlers.
type Options struct {
	// Templates holds templates/base.html and the page templates.
	Templates    fs.FS
	SessionTTL   time.Duration
	SecureCookie bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         Authenticator
	users        UserCounter
	pages        map[string]*template.Template
	sessionTTL   time.Duration
	secureCookie bool
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance, parsing the page templates up front.
func NewHandlers(authn Authenticator, users UserCounter, opts Options) (*Handlers, error) {
	pages := make(map[string]*template.Template)
	for _, view := range []string{"index.html", "tareas.html"} {
		tmpl, err := template.ParseFS(opts.Templates, "templates/base.html", "templates/"+view)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", view, err)
		}
		pages[view] = tmpl
	}
	return &Handlers{
		auth:         authn,
		users:        users,
		pages:        pages,
		sessionTTL:   opts.SessionTTL,
		secureCookie: opts.SecureCookie,
		now:          time.Now,
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Mensaje string `json:"mensaje"`
}

type userResponse struct {
	Mensaje string `json:"mensaje"`
	Usuario string `json:"usuario"`
	ID      int64  `json:"id"`
}

type statusResponse struct {
	Status    string `json:"status"`
	Mensaje   string `json:"mensaje"`
	Timestamp string `json:"timestamp"`
}

// TasksViewModel is the data passed to the tareas template.
type TasksViewModel struct {
	FechaActual   string
	TotalUsuarios int
	Usuario       string
}

// Index renders the static landing page.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", nil)
}

// Status reports that the server is up.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Mensaje:   "Servidor funcionando correctamente",
		Timestamp: h.now().Format(time.RFC3339Nano),
	})
}

// Tasks renders the system page with the current time and user count.
func (h *Handlers) Tasks(w http.ResponseWriter, r *http.Request) {
	total, err := h.users.CountUsers(r.Context())
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("CountUsers failed")
		http.Error(w, "Error al cargar la página: "+err.Error(), http.StatusInternalServerError)
		return
	}

	vm := TasksViewModel{
		FechaActual:   h.now().Format(dateLayout),
		TotalUsuarios: total,
	}
	if sess := h.currentSession(r); sess != nil {
		vm.Usuario = sess.Username
	}
	h.render(w, r, "tareas.html", vm)
}

// Register handles POST /registro.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	username, password, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.auth.Register(r.Context(), username, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	log := logutil.GetOrDefault(r.Context())
	log.Info().Int64("user_id", user.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, userResponse{
		Mensaje: "Usuario registrado exitosamente",
		Usuario: user.Username,
		ID:      user.ID,
	})
}

// Login handles POST /login and sets the session cookie on success.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, sess, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	log := logutil.GetOrDefault(r.Context())
	log.Info().Int64("user_id", user.ID).Msg("user logged in")
	writeJSON(w, http.StatusOK, userResponse{
		Mensaje: "Inicio de sesión exitoso",
		Usuario: user.Username,
		ID:      user.ID,
	})
}

// Logout handles POST /logout. It always succeeds.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			log := logutil.GetOrDefault(r.Context())
			log.Error().Err(err).Msg("Failed to delete session")
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Mensaje: "Sesión cerrada exitosamente"})
}

func (h *Handlers) currentSession(r *http.Request) *models.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := h.auth.Authenticate(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			log := logutil.GetOrDefault(r.Context())
			log.Warn().Err(err).Msg("session lookup failed")
		}
		return nil
	}
	return sess
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeError maps authentication core errors to status codes.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
	case errors.Is(err, auth.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "El usuario ya existe"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Credenciales inválidas"})
	default:
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Error interno del servidor: " + err.Error(),
		})
	}
}

// decodeCredentials performs the transport checks shared by /registro and
// /login. On failure it has already written the 400 response.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (username, password string, ok bool) {
	if !isJSONContent(r.Header.Get("Content-Type")) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Content-Type debe ser application/json"})
		return "", "", false
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No se recibieron datos JSON válidos"})
		return "", "", false
	}

	username, okUser := stringField(body, fieldUsername)
	password, okPass := stringField(body, fieldPassword)
	if !okUser || !okPass {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Los campos usuario y contraseña deben ser texto"})
		return "", "", false
	}
	return username, password, true
}

// stringField reads key as a string. A missing or null field reads as "".
func stringField(body map[string]json.RawMessage, key string) (string, bool) {
	raw, found := body[key]
	if !found || string(raw) == "null" {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/json" {
		return true
	}
	return strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, ok := h.pages[viewName]
	if !ok {
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("view", viewName).Msg("Template execution error")
		http.Error(w, "Error al cargar la página: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
