package domain

import (
	"errors"
)

var (
	MessageSuccessGetRecipes         = "success get recipes"
	MessageSuccessGetRecipeDetail    = "success get recipe detail"
	MessageSuccessSaveRecipe         = "recipe saved successfully"
	MessageSuccessDeleteRecipe       = "recipe deleted successfully"
	MessageSuccessAddFavorite        = "recipe added to favorites"
	MessageSuccessRemoveFavorite     = "recipe removed from favorites"
	MessageSuccessAddToShoppingCart  = "recipe added to shopping cart"
	MessageSuccessRemoveShoppingCart = "recipe removed from shopping cart"

	MessageFailedGetRecipes           = "failed to get recipes"
	MessageFailedGetRecipeDetail      = "failed to get recipe detail"
	MessageFailedSaveRecipe           = "failed to save recipe"
	MessageFailedDeleteRecipe         = "failed to delete recipe"
	MessageFailedFavorite             = "failed to update favorites"
	MessageFailedShoppingCart         = "failed to update shopping cart"
	MessageFailedDownloadShoppingList = "failed to download shopping list"

	ErrRecipeNotFound      = errors.New("recipe not found")
	ErrNotRecipeAuthor     = errors.New("only the author may modify this recipe")
	ErrInvalidCookingTime  = errors.New("cooking time must be greater than zero")
	ErrDuplicateIngredient = errors.New("ingredient must be unique within a recipe")
	ErrInvalidAmount       = errors.New("ingredient amount must be greater than zero")
	ErrRecipeNameTaken     = errors.New("author already has a recipe with this name")
	ErrAlreadyFavorited    = errors.New("recipe is already in favorites")
	ErrNotFavorited        = errors.New("recipe is not in favorites")
	ErrAlreadyInCart       = errors.New("recipe is already in the shopping cart")
	ErrNotInCart           = errors.New("recipe is not in the shopping cart")
	ErrInvalidImagePayload = errors.New("invalid image payload")
)

type (
	RecipeIngredientRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,min=1"`
	}

	SaveRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=200"`
		Text        string                    `json:"text" validate:"required"`
		Image       string                    `json:"image,omitempty"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
		Tags        []string                  `json:"tags" validate:"dive,uuid"`
	}

	// RecipeFilter narrows the recipe list. Zero values mean "no filter".
	RecipeFilter struct {
		AuthorID      string
		TagSlugs      []string
		FavoritedOnly bool
		InCartOnly    bool
		Page          int
		Limit         int
	}

	RecipeIngredientResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               string                     `json:"id"`
		Author           UserResponse               `json:"author"`
		Name             string                     `json:"name"`
		ImageURL         string                     `json:"image,omitempty"`
		Text             string                     `json:"text"`
		CookingTime      int                        `json:"cooking_time"`
		Tags             []TagResponse              `json:"tags"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	}

	// ShortRecipeResponse is the compact representation returned from the
	// favorite/cart add actions and inside subscription listings.
	ShortRecipeResponse struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ImageURL    string `json:"image,omitempty"`
		CookingTime int    `json:"cooking_time"`
	}

	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		TotalAmount     int    `json:"total_amount"`
	}
)
