package migration

import (
	"fmt"
	"log"

	"github.com/lashkinse/foodgram-backend/entities"

	"gorm.io/gorm"
)

// Migrate creates the schema in dependency order so that foreign keys
// always reference tables that already exist.
func Migrate(db *gorm.DB) error {
	models := []interface{}{
		&entities.User{},
		&entities.Tag{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.RecipeIngredient{},
		&entities.RecipeTag{},
		&entities.Favorite{},
		&entities.ShoppingCartEntry{},
		&entities.Follow{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Fatalf("Error migrating %T: %v", model, err)
			return err
		}
	}

	fmt.Println("Database migration complete")
	return nil
}
