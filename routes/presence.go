package routes

import (
	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/services"
	"github.com/VarunDhamode/SciEquip-Website/utils"
	"github.com/kataras/iris/v12"
)

type PresenceHandler struct {
	Presence *services.PresenceService
}

// GetOnlineStatus handles GET /api/online-status/{userId}/{userType}.
// Unknown users read as offline rather than 404; presence is best-effort.
func (h *PresenceHandler) GetOnlineStatus(ctx iris.Context) {
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

	view, err := h.Presence.Status(ctx.Request().Context(), userID, role)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(view)
}
