package routes

import (
	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/utils"
	"github.com/kataras/iris/v12"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RFQHandler struct {
	DB *gorm.DB
}

// RFQWithCustomer is an RFQ row denormalized with the posting customer's name.
type RFQWithCustomer struct {
	models.RFQ   `gorm:"embedded"`
	CustomerName string `json:"customer_name"`
}

// ListRFQs handles GET /api/rfqs?userId=&role=. Customers see their own
// postings; vendors browse the whole marketplace.
func (h *RFQHandler) ListRFQs(ctx iris.Context) {
	role := ctx.URLParam("role")
	userID, _ := ctx.URLParamInt("userId")

	q := h.DB.Table("rfqs AS r").
		Select("r.*, c.name AS customer_name").
		Joins("JOIN customers c ON c.id = r.customer_id")

	if role == "customer" && userID > 0 {
		q = q.Where("r.customer_id = ?", userID)
	}

	var out []RFQWithCustomer
	if err := q.Order("r.created_at DESC").Scan(&out).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if out == nil {
		out = []RFQWithCustomer{}
	}
	ctx.JSON(out)
}

type CreateRFQInput struct {
	Title          string         `json:"title" validate:"required,max=255"`
	Category       string         `json:"category" validate:"max=100"`
	Description    string         `json:"description"`
	Budget         float64        `json:"budget" validate:"gte=0"`
	CustomerID     uint           `json:"customerId" validate:"required"`
	EquipmentSpecs datatypes.JSON `json:"equipmentSpecs"`
}

func (h *RFQHandler) CreateRFQ(ctx iris.Context) {
	var input CreateRFQInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	rfq := models.RFQ{
		CustomerID:     input.CustomerID,
		Title:          input.Title,
		Category:       input.Category,
		Description:    input.Description,
		Budget:         input.Budget,
		Status:         "Open",
		EquipmentSpecs: input.EquipmentSpecs,
	}
	if err := h.DB.Create(&rfq).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			utils.CreateError(iris.StatusUnprocessableEntity, "Unknown reference", "customer does not exist", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"id": rfq.ID, "message": "RFQ Created"})
}
