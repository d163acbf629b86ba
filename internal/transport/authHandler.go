package transport

import (
	"net/http"

	"github.com/ds124wfegd/parkingbooker/internal/service"
	"github.com/ds124wfegd/parkingbooker/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accountService service.AccountService
}

func NewAuthHandler(accountService service.AccountService) *AuthHandler {
	return &AuthHandler{accountService: accountService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Account registered", account)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.accountService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Logged in", resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.accountService.GetAccount(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Account retrieved", account)
}
