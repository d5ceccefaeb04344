package handler

import (
	"errors"
	"strconv"

	"github.com/amirbiron/prompt-enhancer/dto"
	"github.com/amirbiron/prompt-enhancer/model"
	"github.com/amirbiron/prompt-enhancer/repository"
	"github.com/amirbiron/prompt-enhancer/usecase"
	"github.com/amirbiron/prompt-enhancer/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps the repository failure classes onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFound(c, "prompt not found")
	case errors.Is(err, repository.ErrInvalidArgument):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrTimeout):
		utils.GatewayTimeout(c, "store operation timed out")
	case errors.Is(err, repository.ErrStoreUnavailable):
		utils.ServiceUnavailable(c, "store unavailable")
	default:
		utils.TrackError("db")
		utils.InternalError(c, "internal error")
	}
}

func CreatePromptHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	var req dto.CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	prompt := &model.Prompt{
		UserID:         c.GetString("user_id"),
		OriginalPrompt: req.OriginalPrompt,
		ImprovedPrompt: req.ImprovedPrompt,
		Category:       req.Category,
		ScoreBefore:    req.ScoreBefore,
		ScoreAfter:     req.ScoreAfter,
		Iterations:     req.Iterations,
		Tags:           req.Tags,
		Notes:          req.Notes,
	}

	if err := promptsService.CreatePrompt(c.Request.Context(), prompt); err != nil {
		respondError(c, err)
		return
	}

	utils.Created(c, gin.H{"prompt_id": prompt.ID})
}

func GetPromptHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	prompt, err := promptsService.GetPrompt(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, prompt)
}

func GetUserHistoryHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	prompts, err := promptsService.GetUserHistory(c.Request.Context(), c.GetString("user_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, prompts)
}

func AddTagHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	var req dto.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	err := promptsService.AddTag(c.Request.Context(), c.Param("id"), c.GetString("user_id"), req.Tag)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Tag added"})
}

func RemoveTagHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	err := promptsService.RemoveTag(c.Request.Context(), c.Param("id"), c.GetString("user_id"), c.Param("tag"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Tag removed"})
}

func ReplaceTagsHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	var req dto.ReplaceTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	err := promptsService.ReplaceTags(c.Request.Context(), c.Param("id"), c.GetString("user_id"), req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Tags replaced"})
}

func ListByTagHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	prompts, err := promptsService.ListByTag(c.Request.Context(), c.GetString("user_id"), c.Param("tag"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, prompts)
}

func TagInventoryHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	inventory, err := promptsService.TagInventory(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	// Recognized flags are display hints for the chat keyboard only.
	type inventoryEntry struct {
		Tag        string `json:"tag"`
		Count      int    `json:"count"`
		Recognized bool   `json:"recognized"`
	}
	entries := make([]inventoryEntry, 0, len(inventory))
	for _, tc := range inventory {
		entries = append(entries, inventoryEntry{
			Tag:        tc.Tag,
			Count:      tc.Count,
			Recognized: model.IsRecognizedTag(tc.Tag),
		})
	}
	utils.Success(c, entries)
}

func AssignCollectionHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	var req dto.AssignCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	err := promptsService.AssignToCollection(c.Request.Context(),
		c.Param("id"), c.GetString("user_id"), req.CollectionName, req.PriorityOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Collection assignment updated"})
}

func ListCollectionMembersHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	prompts, err := promptsService.ListCollectionMembers(c.Request.Context(),
		c.GetString("user_id"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, prompts)
}

func ListCollectionsHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	collections, err := promptsService.ListCollections(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, collections)
}

func ArchivePromptHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	err := promptsService.ArchivePrompt(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Prompt archived"})
}

func UnarchivePromptHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	err := promptsService.UnarchivePrompt(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Prompt unarchived"})
}

func AddFeedbackHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	err := promptsService.AddFeedback(c.Request.Context(),
		c.Param("id"), c.GetString("user_id"), req.Rating, req.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Feedback recorded"})
}

func TopImprovementsHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	category := c.Query("category")
	minImprovement, _ := strconv.Atoi(c.DefaultQuery("min_improvement", "3"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	improvements, err := promptsService.TopImprovements(c.Request.Context(), category, minImprovement, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, improvements)
}

// MigrateHandler runs the idempotent backfill. Exposed on the admin
// group; re-running after a partial failure is the supported recovery
// path.
func MigrateHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	updated, err := promptsService.Migrate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"updated": updated})
}
