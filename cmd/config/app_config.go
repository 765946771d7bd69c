package config

import (
	"context"
	"os"
	"time"

	"github.com/lashkinse/foodgram-backend/internal/api/handlers"
	"github.com/lashkinse/foodgram-backend/internal/api/routes"
	"github.com/lashkinse/foodgram-backend/internal/middleware"
	"github.com/lashkinse/foodgram-backend/internal/utils"
	"github.com/lashkinse/foodgram-backend/internal/utils/mailing"
	"github.com/lashkinse/foodgram-backend/internal/utils/storage"
	"github.com/lashkinse/foodgram-backend/pkg/ingredient"
	"github.com/lashkinse/foodgram-backend/pkg/jwt"
	"github.com/lashkinse/foodgram-backend/pkg/recipe"
	"github.com/lashkinse/foodgram-backend/pkg/subscription"
	"github.com/lashkinse/foodgram-backend/pkg/tag"
	"github.com/lashkinse/foodgram-backend/pkg/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB, cfg *utils.AppConfig) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.NewValidator(cfg.Limits)

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3, err := storage.NewAwsS3(context.Background(), storage.S3Config{
		Bucket:    cfg.AWSS3Bucket,
		Region:    cfg.AWSS3Region,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
	})
	if err != nil {
		return nil, err
	}
	mailer := mailing.NewMailer(mailing.MailConfig{
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPSender:   cfg.SMTPSenderName,
		SMTPEmail:    cfg.SMTPAuthEmail,
		SMTPPassword: cfg.SMTPAuthPassword,
	})

	// Repository
	userRepository := user.NewUserRepository(db)
	tagRepository := tag.NewTagRepository(db)
	ingredientRepository := ingredient.NewIngredientRepository(db)
	recipeRepository := recipe.NewRecipeRepository(db)

	// Service
	jwtService := jwt.NewJWTService(cfg.JWTSecret)
	userService := user.NewUserService(userRepository, jwtService, mailer, cfg.AppURL)
	tagService := tag.NewTagService(tagRepository)
	ingredientService := ingredient.NewIngredientService(ingredientRepository)
	recipeService := recipe.NewRecipeService(
		recipeRepository,
		ingredientRepository,
		tagRepository,
		userRepository,
		s3,
	)
	subscriptionService := subscription.NewSubscriptionService(userRepository, recipeRepository)

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	tagHandler := handlers.NewTagHandler(tagService, validator)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService)
	recipeHandler := handlers.NewRecipeHandler(recipeService, validator)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)

	// routes
	routesConfig := routes.Config{
		App:                 app,
		UserHandler:         userHandler,
		SubscriptionHandler: subscriptionHandler,
		TagHandler:          tagHandler,
		IngredientHandler:   ingredientHandler,
		RecipeHandler:       recipeHandler,
		Middleware:          middlewares,
		JWTService:          jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
