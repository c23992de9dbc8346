package handlers

import "net/http"

// Routes registers every endpoint on a new ServeMux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /status", h.Status)
	mux.HandleFunc("GET /tareas", h.Tasks)
	mux.HandleFunc("POST /registro", h.Register)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	return mux
}
