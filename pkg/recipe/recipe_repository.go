package recipe

import (
	"context"
	"database/sql"

	"github.com/lashkinse/foodgram-backend/domain"
	"github.com/lashkinse/foodgram-backend/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeRepository interface {
		GetRecipes(ctx context.Context, viewerID string, filter domain.RecipeFilter) ([]*AnnotatedRecipe, int64, error)
		GetAnnotatedRecipeByID(ctx context.Context, viewerID, id string) (*AnnotatedRecipe, error)
		GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error)
		GetRecipesByAuthor(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error)
		CountRecipesByAuthor(ctx context.Context, authorID string) (int64, error)
		RecipeNameTaken(ctx context.Context, authorID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)

		CreateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []entities.RecipeIngredient, tagIDs []uuid.UUID) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []entities.RecipeIngredient, tagIDs []uuid.UUID) error
		DeleteRecipe(ctx context.Context, id string) error

		IsFavorited(ctx context.Context, userID, recipeID string) (bool, error)
		CreateFavorite(ctx context.Context, favorite *entities.Favorite) error
		DeleteFavorite(ctx context.Context, userID, recipeID string) error

		IsInShoppingCart(ctx context.Context, userID, recipeID string) (bool, error)
		CreateShoppingCartEntry(ctx context.Context, entry *entities.ShoppingCartEntry) error
		DeleteShoppingCartEntry(ctx context.Context, userID, recipeID string) error

		GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}

	// AnnotatedRecipe is a recipe row extended with the two viewer-relative
	// flags computed by the annotation subqueries.
	AnnotatedRecipe struct {
		entities.Recipe
		IsFavorited      bool `json:"is_favorited"`
		IsInShoppingCart bool `json:"is_in_shopping_cart"`
	}
)

// The flags are correlated EXISTS subqueries, one per flag, rather than joins:
// a join through the many-to-many tables would duplicate recipe rows.
const annotationSelect = "recipes.*, " +
	"EXISTS(SELECT 1 FROM favorites WHERE favorites.user_id = @viewer AND favorites.recipe_id = recipes.id) AS is_favorited, " +
	"EXISTS(SELECT 1 FROM shopping_cart_entries WHERE shopping_cart_entries.user_id = @viewer AND shopping_cart_entries.recipe_id = recipes.id) AS is_in_shopping_cart"

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

// parseViewer maps an absent or malformed viewer identity to the nil UUID,
// which matches no association rows: anonymous viewers see false flags.
func parseViewer(viewerID string) uuid.UUID {
	id, err := uuid.Parse(viewerID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (r *recipeRepository) filtered(ctx context.Context, viewer uuid.UUID, filter domain.RecipeFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entities.Recipe{})

	if filter.AuthorID != "" {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		// At least one matching tag; EXISTS keeps multi-tagged recipes unique.
		query = query.Where(
			"EXISTS(SELECT 1 FROM recipe_tags JOIN tags ON tags.id = recipe_tags.tag_id "+
				"WHERE recipe_tags.recipe_id = recipes.id AND tags.slug IN ?)",
			filter.TagSlugs,
		)
	}
	if filter.FavoritedOnly {
		query = query.Where(
			"EXISTS(SELECT 1 FROM favorites WHERE favorites.user_id = ? AND favorites.recipe_id = recipes.id)",
			viewer.String(),
		)
	}
	if filter.InCartOnly {
		query = query.Where(
			"EXISTS(SELECT 1 FROM shopping_cart_entries WHERE shopping_cart_entries.user_id = ? AND shopping_cart_entries.recipe_id = recipes.id)",
			viewer.String(),
		)
	}
	return query
}

func (r *recipeRepository) GetRecipes(ctx context.Context, viewerID string, filter domain.RecipeFilter) ([]*AnnotatedRecipe, int64, error) {
	viewer := parseViewer(viewerID)

	var count int64
	if err := r.filtered(ctx, viewer, filter).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, viewer, filter).
		Select(annotationSelect, sql.Named("viewer", viewer.String())).
		Order("recipes.created_at desc")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var rows []*AnnotatedRecipe
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	if err := r.loadAssociations(ctx, rows); err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}

func (r *recipeRepository) GetAnnotatedRecipeByID(ctx context.Context, viewerID, id string) (*AnnotatedRecipe, error) {
	viewer := parseViewer(viewerID)

	var row AnnotatedRecipe
	if err := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Select(annotationSelect, sql.Named("viewer", viewer.String())).
		Where("recipes.id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}

	if err := r.loadAssociations(ctx, []*AnnotatedRecipe{&row}); err != nil {
		return nil, err
	}
	return &row, nil
}

// loadAssociations attaches ingredients, tags and authors to annotated rows
// with one query per collection, keyed back by recipe id.
func (r *recipeRepository) loadAssociations(ctx context.Context, rows []*AnnotatedRecipe) error {
	if len(rows) == 0 {
		return nil
	}

	recipeIDs := make([]uuid.UUID, 0, len(rows))
	byID := make(map[uuid.UUID]*AnnotatedRecipe, len(rows))
	for _, row := range rows {
		recipeIDs = append(recipeIDs, row.ID)
		byID[row.ID] = row
	}

	var recipeIngredients []entities.RecipeIngredient
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("recipe_id IN ?", recipeIDs).
		Find(&recipeIngredients).Error; err != nil {
		return err
	}
	for _, ri := range recipeIngredients {
		row := byID[ri.RecipeID]
		row.Ingredients = append(row.Ingredients, ri)
	}

	var recipeTags []entities.RecipeTag
	if err := r.db.WithContext(ctx).
		Preload("Tag").
		Where("recipe_id IN ?", recipeIDs).
		Find(&recipeTags).Error; err != nil {
		return err
	}
	for _, rt := range recipeTags {
		row := byID[rt.RecipeID]
		row.Tags = append(row.Tags, rt)
	}

	authorIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		authorIDs = append(authorIDs, row.AuthorID)
	}
	var authors []entities.User
	if err := r.db.WithContext(ctx).Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return err
	}
	authorByID := make(map[uuid.UUID]*entities.User, len(authors))
	for i := range authors {
		authorByID[authors[i].ID] = &authors[i]
	}
	for _, row := range rows {
		row.Author = authorByID[row.AuthorID]
	}
	return nil
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipesByAuthor(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe

	query := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *recipeRepository) CountRecipesByAuthor(ctx context.Context, authorID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Where("author_id = ?", authorID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *recipeRepository) RecipeNameTaken(ctx context.Context, authorID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Where("author_id = ? AND name = ?", authorID, name)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []entities.RecipeIngredient, tagIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, ingredients, tagIDs)
	})
}

// UpdateRecipe rewrites the scalar fields and replaces both association sets
// inside one transaction, so readers never observe a partially written set.
func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []entities.RecipeIngredient, tagIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(recipe).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, ingredients, tagIDs)
	})
}

func replaceAssociations(tx *gorm.DB, recipeID uuid.UUID, ingredients []entities.RecipeIngredient, tagIDs []uuid.UUID) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) > 0 {
		recipeTags := make([]entities.RecipeTag, 0, len(tagIDs))
		for _, tagID := range tagIDs {
			recipeTags = append(recipeTags, entities.RecipeTag{RecipeID: recipeID, TagID: tagID})
		}
		if err := tx.Create(&recipeTags).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
		return err
	}
	if len(ingredients) > 0 {
		for i := range ingredients {
			ingredients[i].RecipeID = recipeID
		}
		if err := tx.Create(&ingredients).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.RecipeTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.ShoppingCartEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entities.Recipe{}).Error
	})
}

func (r *recipeRepository) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) CreateFavorite(ctx context.Context, favorite *entities.Favorite) error {
	return r.db.WithContext(ctx).Create(favorite).Error
}

func (r *recipeRepository) DeleteFavorite(ctx context.Context, userID, recipeID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.Favorite{}).Error
}

func (r *recipeRepository) IsInShoppingCart(ctx context.Context, userID, recipeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.ShoppingCartEntry{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) CreateShoppingCartEntry(ctx context.Context, entry *entities.ShoppingCartEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *recipeRepository) DeleteShoppingCartEntry(ctx context.Context, userID, recipeID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.ShoppingCartEntry{}).Error
}

// GetShoppingList unions the ingredient rows of every recipe in the user's
// cart, grouped by (name, unit) with summed amounts, ordered by name for a
// stable rendering.
func (r *recipeRepository) GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	carted := r.db.
		Model(&entities.ShoppingCartEntry{}).
		Select("recipe_id").
		Where("user_id = ?", userID)

	var items []domain.ShoppingListItem
	if err := r.db.WithContext(ctx).
		Model(&entities.RecipeIngredient{}).
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("recipe_ingredients.recipe_id IN (?)", carted).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name asc").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
