package api

import (
	"net/http"

	"github.com/KirkDiggler/threadly/internal/models"
	"github.com/KirkDiggler/threadly/internal/services/game"
	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	Theme     string `json:"theme" binding:"required"`
	MaxRounds int    `json:"max_rounds"`
}

type sessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type readyRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	IsReady   *bool  `json:"is_ready" binding:"required"`
}

type messageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	HostUserID string `json:"host_user_id"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	out, err := h.gameService.CreateSession(c.Request.Context(), &game.CreateSessionInput{
		Theme:      req.Theme,
		HostUserID: userID(c),
		MaxRounds:  req.MaxRounds,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{
		SessionID:  out.Session.ID,
		HostUserID: out.Host.UserID,
	})
}

func (h *Handler) listSessions(c *gin.Context) {
	out, err := h.gameService.ListSessions(c.Request.Context(), &game.ListSessionsInput{})
	if err != nil {
		writeError(c, err)
		return
	}

	sessions := out.Sessions
	if sessions == nil {
		sessions = []*models.SessionWithUsers{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) getSession(c *gin.Context) {
	out, err := h.gameService.GetSession(c.Request.Context(), &game.GetSessionInput{
		SessionID: c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, out.Session)
}

func (h *Handler) joinSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	out, err := h.gameService.JoinSession(c.Request.Context(), &game.JoinSessionInput{
		SessionID: req.SessionID,
		UserID:    userID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, out.Player.ToUserInSession())
}

func (h *Handler) leaveSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	if _, err := h.gameService.LeaveSession(c.Request.Context(), &game.LeaveSessionInput{
		SessionID: req.SessionID,
		UserID:    userID(c),
	}); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) setReady(c *gin.Context) {
	var req readyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	out, err := h.gameService.SetReady(c.Request.Context(), &game.SetReadyInput{
		SessionID: req.SessionID,
		UserID:    userID(c),
		Ready:     *req.IsReady,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, out.Player.ToUserInSession())
}

func (h *Handler) startGame(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	out, err := h.gameService.StartGame(c.Request.Context(), &game.StartGameInput{
		SessionID:  req.SessionID,
		HostUserID: userID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		SessionID:  out.Session.ID,
		HostUserID: userID(c),
	})
}

func (h *Handler) submitMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	out, err := h.gameService.SubmitMessage(c.Request.Context(), &game.SubmitMessageInput{
		SessionID: req.SessionID,
		UserID:    userID(c),
		Content:   req.Content,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, out.Message)
}
