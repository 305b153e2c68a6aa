package postgres

import (
	"gorm.io/gorm"

	"github.com/yoockh/screencopilot/internal/models"
)

// Migrate creates the journal and snapshot tables. The vector extension must
// be available on the server.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}
	return db.AutoMigrate(&models.ConversationLog{}, &models.Snapshot{})
}
