package routes

import (
	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/services"
	"github.com/VarunDhamode/SciEquip-Website/utils"
	"github.com/kataras/iris/v12"
)

type CreateMessageInput struct {
	ConversationID uint   `json:"conversationId"`
	SenderID       uint   `json:"senderId" validate:"required"`
	SenderType     string `json:"senderType" validate:"required,oneof=customer vendor"`
	MessageText    string `json:"messageText" validate:"required,lt=5000"`
	// Conversation context, used when conversationId is absent.
	RFQID      uint `json:"rfqId"`
	CustomerID uint `json:"customerId"`
	VendorID   uint `json:"vendorId"`
}

// CreateMessage handles POST /api/messages: send a message, resolving or
// creating the conversation when only the triple is given.
func (h *ChatHandler) CreateMessage(ctx iris.Context) {
	var input CreateMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	msg, err := h.Chat.PostMessage(ctx.Request().Context(), services.PostMessageInput{
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		SenderType:     models.Role(input.SenderType),
		MessageText:    input.MessageText,
		RFQID:          input.RFQID,
		CustomerID:     input.CustomerID,
		VendorID:       input.VendorID,
	})
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(msg)
}

// ListMessages handles GET /api/messages/{conversationId}: full history,
// ascending by creation time.
func (h *ChatHandler) ListMessages(ctx iris.Context) {
	conversationID, err := ctx.Params().GetUint("conversationId")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "conversationId must be a positive integer", ctx)
		return
	}

	msgs, err := h.Chat.ListMessages(ctx.Request().Context(), conversationID)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	ctx.JSON(msgs)
}

// MarkMessageRead handles PUT /api/messages/{messageId}/read.
func (h *ChatHandler) MarkMessageRead(ctx iris.Context) {
	messageID, err := ctx.Params().GetUint("messageId")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "messageId must be a positive integer", ctx)
		return
	}

	if err := h.Chat.MarkMessageRead(ctx.Request().Context(), messageID); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
