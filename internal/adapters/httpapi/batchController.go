package httpapi

import (
	"net/http"
	"strconv"

	batchEntity "flowforge/internal/core/batch"
	batchapp "flowforge/internal/core/batch/service"

	"github.com/gin-gonic/gin"
)

type BatchController struct{ uc BatchUseCase }

func NewBatchController(uc BatchUseCase) *BatchController { return &BatchController{uc: uc} }

func (ctl *BatchController) Create(c *gin.Context) {
	var req struct {
		Brand          string `json:"brand" binding:"required"`
		ValueCount     int    `json:"value_count"`
		LifestyleCount int    `json:"lifestyle_count"`
		ProductCount   int    `json:"product_count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.Create(c.Request.Context(), req.Brand, batchEntity.TypeCounts{
		Value:     req.ValueCount,
		Lifestyle: req.LifestyleCount,
		Product:   req.ProductCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, dto)
}

func (ctl *BatchController) List(c *gin.Context) {
	var archived *bool
	if raw, ok := c.GetQuery("archived"); ok {
		v, err := strconv.ParseBool(raw)
		if err == nil {
			archived = &v
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	dto, err := ctl.uc.List(c.Request.Context(), archived, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *BatchController) Get(c *gin.Context) {
	dto, err := ctl.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *BatchController) Status(c *gin.Context) {
	dto, err := ctl.uc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *BatchController) SeedPosts(c *gin.Context) {
	var req struct {
		Posts []struct {
			PostType   string `json:"post_type" binding:"required"`
			TopicTitle string `json:"topic_title"`
			ScriptText string `json:"script_text"`
		} `json:"posts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	seeds := make([]batchapp.SeedInput, 0, len(req.Posts))
	for _, p := range req.Posts {
		seeds = append(seeds, batchapp.SeedInput{
			PostType:   p.PostType,
			TopicTitle: p.TopicTitle,
			ScriptText: p.ScriptText,
		})
	}
	dto, err := ctl.uc.SeedPosts(c.Request.Context(), c.Param("id"), seeds, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, dto)
}

func (ctl *BatchController) Advance(c *gin.Context) {
	var req struct {
		TargetState string   `json:"target_state" binding:"required"`
		PostIDs     []string `json:"post_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.Advance(c.Request.Context(), c.Param("id"), req.TargetState, actor(c), req.PostIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *BatchController) Duplicate(c *gin.Context) {
	var req struct {
		Brand string `json:"brand"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.Duplicate(c.Request.Context(), c.Param("id"), req.Brand)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, dto)
}

func (ctl *BatchController) Archive(c *gin.Context) {
	var req struct {
		Archived *bool `json:"archived" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dto, err := ctl.uc.Archive(c.Request.Context(), c.Param("id"), *req.Archived)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *BatchController) QAStatus(c *gin.Context) {
	dto, err := ctl.uc.QAStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

func (ctl *BatchController) AuditTrail(c *gin.Context) {
	entries, err := ctl.uc.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries)
}
