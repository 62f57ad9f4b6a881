package main

import (
	"fmt"
	"log"
	"os"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/storage"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Sets up the schema and seeds the default admin account.
func main() {
	godotenv.Load()

	db, err := storage.Connect(os.Getenv("DB_CONNECTION_STRING"))
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer storage.Close(db)

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	fmt.Println("Database setup complete")

	var admin models.Admin
	err = db.Where("email = ?", "admin@sciequip.com").First(&admin).Error
	if err == nil {
		fmt.Println("Default admin already exists")
		return
	}
	if err != gorm.ErrRecordNotFound {
		log.Fatalf("check admin: %v", err)
	}

	password := os.Getenv("DEFAULT_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	admin = models.Admin{Name: "System Admin", Email: "admin@sciequip.com", Password: string(hash)}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatalf("create admin: %v", err)
	}
	fmt.Println("Created default admin user (admin@sciequip.com)")
}
