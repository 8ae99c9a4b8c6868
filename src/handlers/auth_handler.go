package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/security"
	"github.com/carpal-dk/backoffice/src/utils"
)

type AuthHandler struct {
	authService *security.AuthService
}

func NewAuthHandler(authService *security.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// LoginHandler exchanges dashboard credentials for a bearer token.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.authService.Authenticate(credentials.Username, credentials.Password); err != nil {
		logger.L.Warn("Login failed", "username", credentials.Username, "remoteAddr", r.RemoteAddr)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(credentials.Username)
	if err != nil {
		logger.L.Error("Failed to generate token", "username", credentials.Username, "error", err)
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Login succeeded", "username", credentials.Username)
	utils.SendJSON(w, http.StatusOK, map[string]string{"token": token})
}
