package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/lashkinse/foodgram-backend/cmd/config"
	migration "github.com/lashkinse/foodgram-backend/cmd/database/migrate"
	"github.com/lashkinse/foodgram-backend/internal/utils"
	"github.com/lashkinse/foodgram-backend/pkg/ingredient"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	ingredientsCSV := flag.String("load-ingredients", "", "import ingredients from a CSV file and exit")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("error connecting to database: %v", err)
	}

	if err := migration.Migrate(db); err != nil {
		log.Fatalf("error migrating database: %v", err)
	}

	if *ingredientsCSV != "" {
		file, err := os.Open(*ingredientsCSV)
		if err != nil {
			log.Fatalf("error opening ingredients file: %v", err)
		}
		defer file.Close()

		service := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))
		count, err := service.ImportFromCSV(context.Background(), file)
		if err != nil {
			log.Fatalf("error importing ingredients: %v", err)
		}
		log.Printf("imported %d ingredients", count)
		return
	}

	app, err := config.NewApp(db, cfg)
	if err != nil {
		log.Fatalf("error creating app: %v", err)
	}

	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
