package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// UserHandler serves the caller's own profile
type UserHandler struct{}

// NewUserHandler creates a new user handler
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// RegisterRoutes registers user routes on the given router
// The router should already have the /users prefix
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetMe returns current user information
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}
