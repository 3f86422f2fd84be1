package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/middleware"
	"github.com/Domenick1991/yardhoppers/internal/service/messages"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service messages.MessageUseCase
}

type sendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type messageResponse struct {
	MessageID int64  `json:"messageId"`
	ListingID int64  `json:"listingId"`
	FromUser  string `json:"fromUser"`
	Read      bool   `json:"read"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

func newMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		MessageID: m.ID,
		ListingID: m.ListingID,
		FromUser:  m.FromUser,
		Read:      m.Read,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func NewMessageHandler(service messages.MessageUseCase) *MessageHandler {
	return &MessageHandler{service: service}
}

// Register mounts message routes under listings and under messages.
func (h *MessageHandler) Register(listingsGroup, messagesGroup *gin.RouterGroup) {
	listingsGroup.GET("/:id/messages", middleware.RequireUser(), h.list)
	listingsGroup.POST("/:id/messages", middleware.RequireUser(), h.send)
	messagesGroup.PUT("/:id/read", middleware.RequireUser(), h.markRead)
}

func (h *MessageHandler) send(c *gin.Context) {
	listingID, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.CurrentUser(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), messages.SendMessageInput{
		ListingID: listingID,
		FromUser:  actor.Username,
		Body:      req.Body,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": newMessageResponse(msg)})
}

func (h *MessageHandler) list(c *gin.Context) {
	listingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	actor, _ := middleware.CurrentUser(c)

	msgs, err := h.service.ListForListing(c.Request.Context(), actor, listingID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, newMessageResponse(&msgs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *MessageHandler) markRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	actor, _ := middleware.CurrentUser(c)

	msg, err := h.service.MarkRead(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": newMessageResponse(msg)})
}
