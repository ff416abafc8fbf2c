package handlers

import "net/http"

// AuthHandler stubs the authentication surface; the endpoints exist so
// clients have stable routes while accounts remain unimplemented.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Login endpoint - to be implemented"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Register endpoint - to be implemented"})
}
