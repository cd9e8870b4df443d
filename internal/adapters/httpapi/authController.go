package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthController struct{ uc AuthUseCase }

func NewAuthController(uc AuthUseCase) *AuthController { return &AuthController{uc: uc} }

func (ctl *AuthController) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	token, err := ctl.uc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, token)
}
