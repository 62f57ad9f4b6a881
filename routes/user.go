package routes

import (
	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/utils"
	"github.com/kataras/iris/v12"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler serves registration and login across the three user tables.
// Messaging itself does not authenticate; it trusts the id and role handed
// to it, so these routes exist as the surface that issues those identities.
type AuthHandler struct {
	DB *gorm.DB
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=customer vendor admin"`
}

func (h *AuthHandler) Register(ctx iris.Context) {
	var input RegisterInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	switch input.Role {
	case "customer":
		err = h.DB.Create(&models.Customer{Name: input.Name, Email: input.Email, Password: string(hash)}).Error
	case "vendor":
		err = h.DB.Create(&models.Vendor{Name: input.Name, Email: input.Email, Password: string(hash)}).Error
	case "admin":
		err = h.DB.Create(&models.Admin{Name: input.Name, Email: input.Email, Password: string(hash)}).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.CreateError(iris.StatusConflict, "Registration failed", "email is already taken", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"name": input.Name, "email": input.Email, "role": input.Role, "message": "Registered successfully"})
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks the Customers, Vendors and Admins tables in order, the same
// resolution the original marketplace used.
func (h *AuthHandler) Login(ctx iris.Context) {
	var input LoginInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	id, name, hash, role, found := h.lookupByEmail(input.Email)
	if !found || bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.Password)) != nil {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "invalid credentials", ctx)
		return
	}

	token, err := utils.CreateAccessToken(id, role)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"id":    id,
		"name":  name,
		"email": input.Email,
		"role":  role,
		"token": token,
	})
}

func (h *AuthHandler) lookupByEmail(email string) (id uint, name, hash, role string, found bool) {
	var customer models.Customer
	if err := h.DB.Where("email = ?", email).First(&customer).Error; err == nil {
		return customer.ID, customer.Name, customer.Password, "customer", true
	}
	var vendor models.Vendor
	if err := h.DB.Where("email = ?", email).First(&vendor).Error; err == nil {
		return vendor.ID, vendor.Name, vendor.Password, "vendor", true
	}
	var admin models.Admin
	if err := h.DB.Where("email = ?", email).First(&admin).Error; err == nil {
		return admin.ID, admin.Name, admin.Password, "admin", true
	}
	return 0, "", "", "", false
}

type userRow struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ListUsers handles GET /api/users, an admin view across all three tables.
func (h *AuthHandler) ListUsers(ctx iris.Context) {
	var out []userRow

	var customers []models.Customer
	if err := h.DB.Find(&customers).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	for _, c := range customers {
		out = append(out, userRow{ID: c.ID, Name: c.Name, Email: c.Email, Role: "customer"})
	}

	var vendors []models.Vendor
	if err := h.DB.Find(&vendors).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	for _, v := range vendors {
		out = append(out, userRow{ID: v.ID, Name: v.Name, Email: v.Email, Role: "vendor"})
	}

	var admins []models.Admin
	if err := h.DB.Find(&admins).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	for _, a := range admins {
		out = append(out, userRow{ID: a.ID, Name: a.Name, Email: a.Email, Role: "admin"})
	}

	ctx.JSON(out)
}
