package httpapi

import (
	"net/http"
	"time"

	publishapp "flowforge/internal/core/publish/service"

	"github.com/gin-gonic/gin"
)

type PublishController struct{ uc PublishUseCase }

func NewPublishController(uc PublishUseCase) *PublishController { return &PublishController{uc: uc} }

func (ctl *PublishController) GetPlan(c *gin.Context) {
	plan, err := ctl.uc.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

func (ctl *PublishController) SetPlan(c *gin.Context) {
	var req struct {
		Posts []struct {
			PostID         string    `json:"post_id" binding:"required"`
			ScheduledAt    time.Time `json:"scheduled_at" binding:"required"`
			SocialNetworks []string  `json:"social_networks" binding:"required"`
		} `json:"posts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	items := make([]publishapp.PlanItem, 0, len(req.Posts))
	for _, p := range req.Posts {
		items = append(items, publishapp.PlanItem{
			PostID:         p.PostID,
			ScheduledAt:    p.ScheduledAt,
			SocialNetworks: p.SocialNetworks,
		})
	}
	plan, err := ctl.uc.SetPlan(c.Request.Context(), c.Param("id"), items)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

func (ctl *PublishController) Confirm(c *gin.Context) {
	plan, err := ctl.uc.Confirm(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}
