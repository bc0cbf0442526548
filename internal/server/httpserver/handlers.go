package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ritik1652/expriy-date-tracker/internal/errs"
	"github.com/Ritik1652/expriy-date-tracker/internal/model"
	"github.com/Ritik1652/expriy-date-tracker/internal/service"
)

// maxCategoryNameLen caps category names at the boundary.
const maxCategoryNameLen = 30

// --- Auth ---

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	decodeJSON(r, &req)

	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	tok, err := s.auth.Register(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "username taken")
			return
		}
		s.internalError(w, r, "register", err)
		return
	}
	s.setSessionCookie(w, tok)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": map[string]string{"name": username}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	decodeJSON(r, &req)

	tok, err := s.auth.LoginWithIP(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, errs.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		default:
			s.internalError(w, r, "login", err)
		}
		return
	}
	s.setSessionCookie(w, tok)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": map[string]string{"name": req.Username}})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, tok model.Tokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    tok.AccessToken,
		Path:     "/",
		Expires:  tok.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- Inventory ---

func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromCtx(r.Context())
	inv, err := s.inventory.GetInventory(r.Context(), username)
	if err != nil {
		s.internalError(w, r, "get inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type addItemRequest struct {
	Name       string `json:"name"`
	ExpiryDate string `json:"expiry_date"`
	Category   string `json:"category"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	decodeJSON(r, &req)

	name := strings.TrimSpace(req.Name)
	if name == "" || req.ExpiryDate == "" {
		writeError(w, http.StatusBadRequest, "name and expiry date are required")
		return
	}
	if _, err := time.Parse(model.DateLayout, req.ExpiryDate); err != nil {
		writeError(w, http.StatusBadRequest, "expiry date must be YYYY-MM-DD")
		return
	}

	username, _ := UsernameFromCtx(r.Context())
	item, err := s.inventory.AddItem(r.Context(), service.AddItemInput{
		Name:       name,
		ExpiryDate: req.ExpiryDate,
		Category:   req.Category,
	}, username)
	if err != nil {
		s.internalError(w, r, "add item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

type deleteItemRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	var req deleteItemRequest
	decodeJSON(r, &req)
	if req.ID == 0 {
		writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	username, _ := UsernameFromCtx(r.Context())
	ok, err := s.inventory.DeleteItem(r.Context(), req.ID, username)
	if err != nil {
		s.internalError(w, r, "delete item", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "item not found or access denied")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- Categories ---

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromCtx(r.Context())
	cats, err := s.categories.GetCategories(r.Context(), username)
	if err != nil {
		s.internalError(w, r, "get categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	decodeJSON(r, &req)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "category name missing")
		return
	}
	if len(name) > maxCategoryNameLen {
		writeError(w, http.StatusBadRequest, "name too long (max 30 chars)")
		return
	}

	username, _ := UsernameFromCtx(r.Context())
	cat, err := s.categories.AddCategory(r.Context(), name, username)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "category already exists")
			return
		}
		s.internalError(w, r, "add category", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "category": cat})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	decodeJSON(r, &req)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}

	username, _ := UsernameFromCtx(r.Context())
	if err := s.categories.DeleteCategory(r.Context(), req.Name, username); err != nil {
		if errors.Is(err, errs.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "category not found or permission denied")
			return
		}
		s.internalError(w, r, "delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// internalError logs the failure with context and hides details from the client.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.Error(op,
		zap.Error(err),
		zap.String("path", r.URL.Path),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
