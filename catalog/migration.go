package catalog

import (
	"fmt"

	"github.com/khankhulgun/khanstyle/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Map{},
		&models.MapSource{},
		&models.MapLayer{},
	)
	if err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}
