package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PostController struct{ uc PostUseCase }

func NewPostController(uc PostUseCase) *PostController { return &PostController{uc: uc} }

func (ctl *PostController) Get(c *gin.Context) {
	dto, err := ctl.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *PostController) UpdateScript(c *gin.Context) {
	var req struct {
		ScriptText string `json:"script_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.UpdateScript(c.Request.Context(), c.Param("id"), req.ScriptText)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *PostController) ApproveScript(c *gin.Context) {
	dto, err := ctl.uc.ApproveScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *PostController) UnapproveScript(c *gin.Context) {
	dto, err := ctl.uc.UnapproveScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *PostController) SetPrompt(c *gin.Context) {
	var req struct {
		Prompt json.RawMessage `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.SetPrompt(c.Request.Context(), c.Param("id"), string(req.Prompt))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}
