package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ecohuntapp/ecohunt-server/internal/dto"
	"github.com/ecohuntapp/ecohunt-server/internal/service"
	"github.com/ecohuntapp/ecohunt-server/pkg/apperror"
	"github.com/ecohuntapp/ecohunt-server/pkg/response"
	"github.com/ecohuntapp/ecohunt-server/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MissionHandler struct {
	missions service.MissionService
	analysis service.AnalysisService
	search   service.SearchService
}

func NewMissionHandler(missions service.MissionService, analysis service.AnalysisService, search service.SearchService) *MissionHandler {
	return &MissionHandler{missions: missions, analysis: analysis, search: search}
}

func (h *MissionHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.CreateMissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.missions.CreateMission(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *MissionHandler) Get(c *gin.Context) {
	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	resp, err := h.missions.GetMission(c.Request.Context(), missionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MissionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	missions, err := h.missions.ListMissions(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": missions})
}

func (h *MissionHandler) Start(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	mission, err := h.missions.StartMission(c.Request.Context(), userID, missionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mission": mission})
}

func (h *MissionHandler) AddPhoto(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	var input dto.AddPhotoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	media, err := h.missions.AddPhoto(c.Request.Context(), userID, missionID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"media": media})
}

func (h *MissionHandler) Complete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	var input dto.CompleteCleanupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.missions.CompleteCleanup(c.Request.Context(), userID, missionID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Analyze exposes the waste analysis directly, mirroring the mobile client's
// scan screens: before scans, after comparisons and help-request text.
func (h *MissionHandler) Analyze(c *gin.Context) {
	var input dto.AnalyzeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	ctx := c.Request.Context()
	switch input.Mode {
	case "before":
		result, err := h.analysis.AnalyzeBefore(ctx, input.ImageBase64)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": input.Mode, "result": result})

	case "after":
		var before service.BeforeAnalysis
		if len(input.BeforeData) > 0 {
			if err := json.Unmarshal(input.BeforeData, &before); err != nil {
				response.ResponseError(c, apperror.New(400, "invalid before_data payload", apperror.ErrInvalidInput))
				return
			}
		}
		result, err := h.analysis.AnalyzeAfter(ctx, input.ImageBase64, &before)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": input.Mode, "result": result})

	case "help_description":
		var hc service.HelpContext
		if len(input.HelpContext) > 0 {
			if err := json.Unmarshal(input.HelpContext, &hc); err != nil {
				response.ResponseError(c, apperror.New(400, "invalid help_context payload", apperror.ErrInvalidInput))
				return
			}
		}
		result, err := h.analysis.DescribeHelpRequest(ctx, hc)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": input.Mode, "result": result})
	}
}

func (h *MissionHandler) Search(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	hits, err := h.search.SearchMissions(c.Query("q"), c.Query("status"), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": hits})
}
