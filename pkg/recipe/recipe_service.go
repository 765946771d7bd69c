package recipe

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/lashkinse/foodgram-backend/domain"
	"github.com/lashkinse/foodgram-backend/entities"
	"github.com/lashkinse/foodgram-backend/internal/utils/storage"
	"github.com/lashkinse/foodgram-backend/pkg/ingredient"
	"github.com/lashkinse/foodgram-backend/pkg/tag"
	"github.com/lashkinse/foodgram-backend/pkg/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		GetRecipes(ctx context.Context, viewerID string, filter domain.RecipeFilter) ([]domain.RecipeResponse, int64, error)
		GetRecipeDetail(ctx context.Context, viewerID, recipeID string) (domain.RecipeResponse, error)
		CreateRecipe(ctx context.Context, authorID string, req domain.SaveRecipeRequest) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, authorID, recipeID string, req domain.SaveRecipeRequest) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, authorID, recipeID string) error

		AddFavorite(ctx context.Context, userID, recipeID string) (domain.ShortRecipeResponse, error)
		RemoveFavorite(ctx context.Context, userID, recipeID string) error
		AddToShoppingCart(ctx context.Context, userID, recipeID string) (domain.ShortRecipeResponse, error)
		RemoveFromShoppingCart(ctx context.Context, userID, recipeID string) error

		GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		ingredientRepository ingredient.IngredientRepository
		tagRepository        tag.TagRepository
		userRepository       user.UserRepository
		storage              storage.Storage
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	ingredientRepository ingredient.IngredientRepository,
	tagRepository tag.TagRepository,
	userRepository user.UserRepository,
	storage storage.Storage,
) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		ingredientRepository: ingredientRepository,
		tagRepository:        tagRepository,
		userRepository:       userRepository,
		storage:              storage,
	}
}

func (s *recipeService) GetRecipes(ctx context.Context, viewerID string, filter domain.RecipeFilter) ([]domain.RecipeResponse, int64, error) {
	rows, count, err := s.recipeRepository.GetRecipes(ctx, viewerID, filter)
	if err != nil {
		return nil, 0, err
	}

	subscribed := make(map[uuid.UUID]bool)
	res := make([]domain.RecipeResponse, 0, len(rows))
	for _, row := range rows {
		isSubscribed, err := s.isSubscribedCached(ctx, viewerID, row.AuthorID, subscribed)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, toRecipeResponse(row, isSubscribed))
	}
	return res, count, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, viewerID, recipeID string) (domain.RecipeResponse, error) {
	row, err := s.recipeRepository.GetAnnotatedRecipeByID(ctx, viewerID, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	isSubscribed, err := s.isSubscribedCached(ctx, viewerID, row.AuthorID, nil)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	return toRecipeResponse(row, isSubscribed), nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, authorID string, req domain.SaveRecipeRequest) (domain.RecipeResponse, error) {
	author, err := uuid.Parse(authorID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	ingredients, tagIDs, err := s.validateSaveRequest(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	taken, err := s.recipeRepository.RecipeNameTaken(ctx, author, req.Name, uuid.Nil)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	if taken {
		return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
	}

	imageURL := ""
	if req.Image != "" {
		imageURL, err = s.uploadImage(ctx, req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
	}

	recipe := &entities.Recipe{
		AuthorID:    author,
		Name:        req.Name,
		ImageURL:    imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, ingredients, tagIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
		}
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, authorID, recipe.ID.String())
}

func (s *recipeService) UpdateRecipe(ctx context.Context, authorID, recipeID string, req domain.SaveRecipeRequest) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}
	if recipe.AuthorID.String() != authorID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	ingredients, tagIDs, err := s.validateSaveRequest(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	taken, err := s.recipeRepository.RecipeNameTaken(ctx, recipe.AuthorID, req.Name, recipe.ID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	if taken {
		return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime
	if req.Image != "" {
		imageURL, err := s.uploadImage(ctx, req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		recipe.ImageURL = imageURL
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, ingredients, tagIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
		}
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, authorID, recipeID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, authorID, recipeID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}
	if recipe.AuthorID.String() != authorID {
		return domain.ErrNotRecipeAuthor
	}
	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) AddFavorite(ctx context.Context, userID, recipeID string) (domain.ShortRecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortRecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortRecipeResponse{}, err
	}

	exists, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return domain.ShortRecipeResponse{}, err
	}
	if exists {
		return domain.ShortRecipeResponse{}, domain.ErrAlreadyFavorited
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.ShortRecipeResponse{}, domain.ErrParseUUID
	}

	favorite := &entities.Favorite{UserID: userUUID, RecipeID: recipe.ID}
	if err := s.recipeRepository.CreateFavorite(ctx, favorite); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ShortRecipeResponse{}, domain.ErrAlreadyFavorited
		}
		return domain.ShortRecipeResponse{}, err
	}
	return ToShortRecipeResponse(recipe), nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	exists, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFavorited
	}
	return s.recipeRepository.DeleteFavorite(ctx, userID, recipeID)
}

func (s *recipeService) AddToShoppingCart(ctx context.Context, userID, recipeID string) (domain.ShortRecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortRecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortRecipeResponse{}, err
	}

	exists, err := s.recipeRepository.IsInShoppingCart(ctx, userID, recipeID)
	if err != nil {
		return domain.ShortRecipeResponse{}, err
	}
	if exists {
		return domain.ShortRecipeResponse{}, domain.ErrAlreadyInCart
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.ShortRecipeResponse{}, domain.ErrParseUUID
	}

	entry := &entities.ShoppingCartEntry{UserID: userUUID, RecipeID: recipe.ID}
	if err := s.recipeRepository.CreateShoppingCartEntry(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ShortRecipeResponse{}, domain.ErrAlreadyInCart
		}
		return domain.ShortRecipeResponse{}, err
	}
	return ToShortRecipeResponse(recipe), nil
}

func (s *recipeService) RemoveFromShoppingCart(ctx context.Context, userID, recipeID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	exists, err := s.recipeRepository.IsInShoppingCart(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotInCart
	}
	return s.recipeRepository.DeleteShoppingCartEntry(ctx, userID, recipeID)
}

func (s *recipeService) GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	return s.recipeRepository.GetShoppingList(ctx, userID)
}

// RenderShoppingList formats the aggregated items as the plain-text download
// body, one 1-indexed line per ingredient group.
func RenderShoppingList(items []domain.ShoppingListItem) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s - %d %s\n", i+1, item.Name, item.TotalAmount, item.MeasurementUnit)
	}
	return b.String()
}

// validateSaveRequest runs the pre-write checks shared by create and update
// and resolves payload ids against the ingredient and tag tables.
func (s *recipeService) validateSaveRequest(ctx context.Context, req domain.SaveRecipeRequest) ([]entities.RecipeIngredient, []uuid.UUID, error) {
	if req.CookingTime < 1 {
		return nil, nil, domain.ErrInvalidCookingTime
	}

	seen := make(map[string]bool, len(req.Ingredients))
	ingredientIDs := make([]string, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		if item.Amount < 1 {
			return nil, nil, domain.ErrInvalidAmount
		}
		if seen[item.ID] {
			return nil, nil, domain.ErrDuplicateIngredient
		}
		seen[item.ID] = true
		ingredientIDs = append(ingredientIDs, item.ID)
	}

	known, err := s.ingredientRepository.GetIngredientsByIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(known) != len(ingredientIDs) {
		return nil, nil, domain.ErrIngredientNotFound
	}

	ingredients := make([]entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		ingredientID, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, nil, domain.ErrParseUUID
		}
		ingredients = append(ingredients, entities.RecipeIngredient{
			IngredientID: ingredientID,
			Amount:       item.Amount,
		})
	}

	tagIDs := make([]uuid.UUID, 0, len(req.Tags))
	if len(req.Tags) > 0 {
		knownTags, err := s.tagRepository.GetTagsByIDs(ctx, req.Tags)
		if err != nil {
			return nil, nil, err
		}
		if len(knownTags) != len(req.Tags) {
			return nil, nil, domain.ErrTagNotFound
		}
		for _, raw := range req.Tags {
			tagID, err := uuid.Parse(raw)
			if err != nil {
				return nil, nil, domain.ErrParseUUID
			}
			tagIDs = append(tagIDs, tagID)
		}
	}

	return ingredients, tagIDs, nil
}

// uploadImage decodes a base64 image payload (optionally a data URI) and
// stores it, returning the public URL.
func (s *recipeService) uploadImage(ctx context.Context, payload string) (string, error) {
	contentType := "image/png"
	encoded := payload

	if strings.HasPrefix(payload, "data:") {
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return "", domain.ErrInvalidImagePayload
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(parts[0], "data:"), ";base64")
		encoded = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", domain.ErrInvalidImagePayload
	}

	ext := strings.TrimPrefix(contentType, "image/")
	if ext == "" || ext == contentType {
		ext = "png"
	}

	key := fmt.Sprintf("recipes/%s.%s", uuid.New().String(), ext)
	return s.storage.UploadFile(ctx, key, bytes.NewReader(data), contentType)
}

func (s *recipeService) isSubscribedCached(ctx context.Context, viewerID string, authorID uuid.UUID, cache map[uuid.UUID]bool) (bool, error) {
	if viewerID == "" || viewerID == authorID.String() {
		return false, nil
	}
	if cache != nil {
		if cached, ok := cache[authorID]; ok {
			return cached, nil
		}
	}

	isSubscribed, err := s.userRepository.IsFollowing(ctx, viewerID, authorID.String())
	if err != nil {
		return false, err
	}
	if cache != nil {
		cache[authorID] = isSubscribed
	}
	return isSubscribed, nil
}

func toRecipeResponse(row *AnnotatedRecipe, authorSubscribed bool) domain.RecipeResponse {
	res := domain.RecipeResponse{
		ID:               row.ID.String(),
		Name:             row.Name,
		ImageURL:         row.ImageURL,
		Text:             row.Text,
		CookingTime:      row.CookingTime,
		Tags:             make([]domain.TagResponse, 0, len(row.Tags)),
		Ingredients:      make([]domain.RecipeIngredientResponse, 0, len(row.Ingredients)),
		IsFavorited:      row.IsFavorited,
		IsInShoppingCart: row.IsInShoppingCart,
	}
	if row.Author != nil {
		res.Author = user.ToUserResponse(row.Author, authorSubscribed)
	}
	for _, rt := range row.Tags {
		if rt.Tag != nil {
			res.Tags = append(res.Tags, tag.ToTagResponse(rt.Tag))
		}
	}
	for _, ri := range row.Ingredients {
		item := domain.RecipeIngredientResponse{
			ID:     ri.IngredientID.String(),
			Amount: ri.Amount,
		}
		if ri.Ingredient != nil {
			item.Name = ri.Ingredient.Name
			item.MeasurementUnit = ri.Ingredient.MeasurementUnit
		}
		res.Ingredients = append(res.Ingredients, item)
	}
	return res
}

func ToShortRecipeResponse(recipe *entities.Recipe) domain.ShortRecipeResponse {
	return domain.ShortRecipeResponse{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		ImageURL:    recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}
