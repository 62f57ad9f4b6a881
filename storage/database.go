package storage

import (
	"time"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection pool. The handle is owned by the
// caller; there is no package-level database state.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_CONNECTION_STRING environment variable is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Map unique and foreign key violations to gorm.ErrDuplicatedKey /
		// gorm.ErrForeignKeyViolated so services can branch on them.
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to db")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Customer{},
		&models.Vendor{},
		&models.Admin{},
		&models.RFQ{},
		&models.Bid{},
		&models.Conversation{}, // before messages, which reference it
		&models.Message{},
		&models.OnlineStatus{},
	)
}
