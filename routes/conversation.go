package routes

import (
	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/services"
	"github.com/VarunDhamode/SciEquip-Website/utils"
	"github.com/kataras/iris/v12"
)

// ChatHandler serves the conversation and message endpoints.
type ChatHandler struct {
	Chat *services.ChatService
}

// ListConversations handles GET /api/conversations/{userId}/{userType}.
func (h *ChatHandler) ListConversations(ctx iris.Context) {
	userID, err := ctx.Params().GetUint("userId")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "userId must be a positive integer", ctx)
		return
	}
	role, ok := models.ParseRole(ctx.Params().Get("userType"))
	if !ok {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "userType must be customer or vendor", ctx)
		return
	}

	conversations, err := h.Chat.ListConversations(ctx.Request().Context(), userID, role)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	if conversations == nil {
		conversations = []services.ConversationSummary{}
	}
	ctx.JSON(conversations)
}

type markConversationReadInput struct {
	UserType string `json:"userType" validate:"required,oneof=customer vendor"`
}

// MarkConversationRead handles PUT /api/conversations/{conversationId}/read.
func (h *ChatHandler) MarkConversationRead(ctx iris.Context) {
	conversationID, err := ctx.Params().GetUint("conversationId")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "conversationId must be a positive integer", ctx)
		return
	}
	var input markConversationReadInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := h.Chat.MarkConversationRead(ctx.Request().Context(), conversationID, models.Role(input.UserType)); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
