package handler

import (
	"time"

	"github.com/amirbiron/prompt-enhancer/dto"
	"github.com/amirbiron/prompt-enhancer/model"
	"github.com/amirbiron/prompt-enhancer/repository"
	"github.com/amirbiron/prompt-enhancer/utils"

	"github.com/gin-gonic/gin"
)

func GetSessionHandler(c *gin.Context, sessionRepo *repository.SessionRepo) {
	session, err := sessionRepo.GetSession(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		utils.NotFound(c, "no active session")
		return
	}
	utils.Success(c, session)
}

func SaveSessionHandler(c *gin.Context, sessionRepo *repository.SessionRepo) {
	var req dto.SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	session := &model.Session{
		UserID:           c.GetString("user_id"),
		CurrentPrompt:    req.CurrentPrompt,
		CurrentCategory:  req.CurrentCategory,
		AwaitingResponse: req.AwaitingResponse,
		PendingQuestions: req.PendingQuestions,
		Context:          req.Context,
		DeviceInfo:       utils.DescribeUserAgent(c.Request.UserAgent()),
		IPAddress:        c.ClientIP(),
		ExpiresAt:        time.Now().Add(24 * time.Hour),
	}
	if session.PendingQuestions == nil {
		session.PendingQuestions = []string{}
	}
	if session.Context == nil {
		session.Context = map[string]interface{}{}
	}

	if err := sessionRepo.SaveSession(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Session saved"})
}

func ClearSessionHandler(c *gin.Context, sessionRepo *repository.SessionRepo) {
	if err := sessionRepo.ClearSession(c.Request.Context(), c.GetString("user_id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Session cleared"})
}
