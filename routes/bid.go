package routes

import (
	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/utils"
	"github.com/kataras/iris/v12"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type BidHandler struct {
	DB *gorm.DB
}

// BidWithVendor is a bid row joined with the bidding vendor's id (bids are
// keyed by vendor email, a quirk inherited from the bid form).
type BidWithVendor struct {
	models.Bid `gorm:"embedded"`
	VendorID   uint `json:"vendor_id"`
}

// rankedBids keeps only the latest bid per vendor per RFQ.
const rankedBids = `
	SELECT b.*, v.id AS vendor_id,
	       ROW_NUMBER() OVER (PARTITION BY b.rfq_id, b.vendor_email ORDER BY b.timestamp DESC) AS rn
	FROM bids b
	LEFT JOIN vendors v ON v.email = b.vendor_email`

// ListBids handles GET /api/bids?userId=&role=. Customers see the latest
// bids against their RFQs; vendors see their own latest bids.
func (h *BidHandler) ListBids(ctx iris.Context) {
	role := ctx.URLParam("role")
	userID, _ := ctx.URLParamInt("userId")

	var (
		query string
		args  []interface{}
	)
	switch {
	case role == "customer" && userID > 0:
		query = `SELECT ranked.* FROM (` + rankedBids + `) ranked
			JOIN rfqs r ON r.id = ranked.rfq_id
			WHERE ranked.rn = 1 AND r.customer_id = ?
			ORDER BY ranked.timestamp DESC`
		args = append(args, userID)
	case role == "vendor" && userID > 0:
		query = `SELECT * FROM (` + rankedBids + `) ranked
			WHERE rn = 1 AND vendor_id = ?
			ORDER BY timestamp DESC`
		args = append(args, userID)
	default:
		query = `SELECT * FROM (` + rankedBids + `) ranked
			WHERE rn = 1
			ORDER BY timestamp DESC`
	}

	var out []BidWithVendor
	if err := h.DB.Raw(query, args...).Scan(&out).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if out == nil {
		out = []BidWithVendor{}
	}
	ctx.JSON(out)
}

type CreateBidInput struct {
	RFQID       uint    `json:"rfqId" validate:"required"`
	VendorName  string  `json:"vendorName" validate:"required,max=255"`
	VendorEmail string  `json:"vendorEmail" validate:"required,email"`
	Price       float64 `json:"price" validate:"gte=0"`
	Proposal    string  `json:"proposal"`
}

func (h *BidHandler) CreateBid(ctx iris.Context) {
	var input CreateBidInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	bid := models.Bid{
		RFQID:       input.RFQID,
		VendorName:  input.VendorName,
		VendorEmail: input.VendorEmail,
		Price:       input.Price,
		Proposal:    input.Proposal,
	}
	if err := h.DB.Create(&bid).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			utils.CreateError(iris.StatusUnprocessableEntity, "Unknown reference", "rfq does not exist", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	h.DB.Model(&models.RFQ{}).
		Where("id = ?", input.RFQID).
		UpdateColumn("vendor_bids", gorm.Expr("vendor_bids + ?", 1))

	ctx.JSON(iris.Map{"id": bid.ID, "message": "Bid Submitted"})
}
