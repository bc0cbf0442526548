// Package httpserver exposes the JSON API over HTTP and owns session cookies.
package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Ritik1652/expriy-date-tracker/internal/service"
)

// sessionCookie carries the signed session token.
const sessionCookie = "session"

// Server wires services into HTTP handlers.
type Server struct {
	auth       service.AuthService
	inventory  service.InventoryService
	categories service.CategoryService
	signKey    []byte
	log        *zap.Logger
}

// New constructs a Server with injected services.
func New(auth service.AuthService, inventory service.InventoryService, categories service.CategoryService, signKey []byte, log *zap.Logger) *Server {
	return &Server{auth: auth, inventory: inventory, categories: categories, signKey: signKey, log: log}
}

// Handler returns the routed handler with logging and panic recovery applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	// Protected routes (require a valid session)
	mux.Handle("GET /api/inventory", s.authenticated(s.handleGetInventory))
	mux.Handle("POST /api/add_item", s.authenticated(s.handleAddItem))
	mux.Handle("POST /api/delete_item", s.authenticated(s.handleDeleteItem))
	mux.Handle("GET /api/categories", s.authenticated(s.handleGetCategories))
	mux.Handle("POST /api/add_category", s.authenticated(s.handleAddCategory))
	mux.Handle("POST /api/delete_category", s.authenticated(s.handleDeleteCategory))

	return s.withRecover(s.withLogging(mux))
}

// writeJSON encodes payload with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends the standard error shape.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON parses the request body into out; a missing or malformed body is
// tolerated as an empty input so handlers validate fields, not transport.
func decodeJSON(r *http.Request, out any) {
	if r.Body == nil {
		return
	}
	_ = json.NewDecoder(r.Body).Decode(out)
}
