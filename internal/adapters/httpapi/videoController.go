package httpapi

import (
	"net/http"

	videoapp "flowforge/internal/core/video/service"

	"github.com/gin-gonic/gin"
)

type VideoController struct{ uc VideoUseCase }

func NewVideoController(uc VideoUseCase) *VideoController { return &VideoController{uc: uc} }

type generateRequest struct {
	Provider    string `json:"provider"`
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
}

func (r generateRequest) options() videoapp.GenerateOptions {
	return videoapp.GenerateOptions{
		Provider:    r.Provider,
		AspectRatio: r.AspectRatio,
		Resolution:  r.Resolution,
	}
}

func (ctl *VideoController) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.Generate(c.Request.Context(), c.Param("id"), req.options())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusAccepted, dto)
}

func (ctl *VideoController) GenerateAll(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		bindError(c, err)
		return
	}
	result, err := ctl.uc.GenerateAll(c.Request.Context(), c.Param("id"), req.options())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusAccepted, result)
}

func (ctl *VideoController) Status(c *gin.Context) {
	dto, err := ctl.uc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}
