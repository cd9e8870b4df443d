package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type QAController struct{ uc QAUseCase }

func NewQAController(uc QAUseCase) *QAController { return &QAController{uc: uc} }

func (ctl *QAController) AutoCheck(c *gin.Context) {
	checks, err := ctl.uc.AutoCheck(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, checks)
}

func (ctl *QAController) Decide(c *gin.Context) {
	var req struct {
		Pass  *bool  `json:"pass" binding:"required"`
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.Decide(c.Request.Context(), c.Param("id"), *req.Pass, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}
