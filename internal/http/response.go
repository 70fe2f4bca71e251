package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"athena-feed/internal/repository"
	"athena-feed/internal/service"
)

type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Error      *apiError   `json:"error,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Timestamp  string      `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
	Total   *int `json:"total,omitempty"`
}

const (
	codeValidation   = "VALIDATION_ERROR"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "CONFLICT"
	codeRateLimited  = "RATE_LIMITED"
	codeUnavailable  = "SERVICE_UNAVAILABLE"
	codeInternal     = "INTERNAL_ERROR"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data, Timestamp: timestamp()})
}

func respondPage(c *gin.Context, data any, p pagination) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Pagination: &p, Timestamp: timestamp()})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, envelope{
		Success:   false,
		Error:     &apiError{Code: code, Message: message},
		Timestamp: timestamp(),
	})
}

// writeError maps service and repository errors onto status codes.
// Anything unrecognised is logged and reported as a 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrInvalidRegistrationPassword):
		respondError(c, http.StatusForbidden, codeForbidden, "Invalid registration password")
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, codeForbidden, "You are not allowed to perform this action")
	case errors.Is(err, service.ErrUserAlreadyExists):
		respondError(c, http.StatusConflict, codeConflict, "A user with this email already exists")
	case errors.Is(err, repository.ErrConflict):
		respondError(c, http.StatusConflict, codeConflict, "Resource already exists")
	case errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, "Resource not found")
	case errors.Is(err, service.ErrStorageDisabled):
		respondError(c, http.StatusServiceUnavailable, codeUnavailable, err.Error())
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		respondError(c, http.StatusInternalServerError, codeInternal, "Internal server error")
	}
}

func badRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, codeValidation, message)
}

// pageParams reads page and limit, applying the defaults and the limit cap.
func pageParams(c *gin.Context) (int, int) {
	return service.NormalizePage(queryInt(c, "page", service.DefaultPage), queryInt(c, "limit", service.DefaultLimit))
}

// queryInt returns def for missing or malformed values.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
