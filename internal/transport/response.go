package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/gin-gonic/gin"
)

// SuccessResponse представляет успешный ответ
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{entity.ErrInvalidFormat, http.StatusBadRequest, "INVALID_FORMAT"},
	{entity.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{entity.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{entity.ErrInvalidSignature, http.StatusUnprocessableEntity, "INVALID_SIGNATURE"},
	{entity.ErrNotActive, http.StatusConflict, "NOT_ACTIVE"},
	{entity.ErrExpired, http.StatusGone, "EXPIRED"},
	{entity.ErrNotToday, http.StatusConflict, "NOT_TODAY"},
	{entity.ErrNoCapacity, http.StatusConflict, "NO_CAPACITY"},
	{entity.ErrSlotUnavailable, http.StatusConflict, "SLOT_UNAVAILABLE"},
	{entity.ErrAccountExists, http.StatusConflict, "ACCOUNT_EXISTS"},
	{entity.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{entity.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{entity.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
}

// errorStatus maps a domain error to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}

	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error:   msg,
		Code:    "INVALID_INPUT",
	})
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// pageParams читает limit/offset из запроса
func pageParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginate[T any](items []T, limit, offset int) ([]T, map[string]interface{}) {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	return items[start:end], map[string]interface{}{
		"total":    len(items),
		"limit":    limit,
		"offset":   offset,
		"has_more": end < len(items),
	}
}
