package recipe

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/lashkinse/foodgram-backend/domain"
	"github.com/lashkinse/foodgram-backend/entities"
	"github.com/lashkinse/foodgram-backend/pkg/ingredient"
	"github.com/lashkinse/foodgram-backend/pkg/tag"
	"github.com/lashkinse/foodgram-backend/pkg/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeStorage keeps uploads out of tests; it only echoes back a URL.
type fakeStorage struct{}

func (fakeStorage) UploadFile(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	return "https://cdn.test/" + key, nil
}

type recipeTestEnv struct {
	db      *gorm.DB
	service RecipeService
	repo    RecipeRepository
}

func setupRecipeTest(t *testing.T) *recipeTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Tag{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.RecipeIngredient{},
		&entities.RecipeTag{},
		&entities.Favorite{},
		&entities.ShoppingCartEntry{},
		&entities.Follow{},
	)
	require.NoError(t, err)

	repo := NewRecipeRepository(db)
	service := NewRecipeService(
		repo,
		ingredient.NewIngredientRepository(db),
		tag.NewTagRepository(db),
		user.NewUserRepository(db),
		fakeStorage{},
	)
	return &recipeTestEnv{db: db, service: service, repo: repo}
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *entities.User {
	t.Helper()
	u := &entities.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createTestTag(t *testing.T, db *gorm.DB, name, color, slug string) *entities.Tag {
	t.Helper()
	tg := &entities.Tag{Name: name, Color: color, Slug: slug}
	require.NoError(t, db.Create(tg).Error)
	return tg
}

func createTestIngredient(t *testing.T, db *gorm.DB, name, unit string) *entities.Ingredient {
	t.Helper()
	ing := &entities.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

func saveRequest(name string, ingredients []domain.RecipeIngredientRequest, tagIDs ...string) domain.SaveRecipeRequest {
	return domain.SaveRecipeRequest{
		Name:        name,
		Text:        "some cooking instructions",
		CookingTime: 30,
		Ingredients: ingredients,
		Tags:        tagIDs,
	}
}

func TestCreateRecipe(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	breakfast := createTestTag(t, env.db, "breakfast", "#E26C2D", "breakfast")
	flour := createTestIngredient(t, env.db, "flour", "g")
	milk := createTestIngredient(t, env.db, "milk", "ml")

	req := saveRequest("pancakes", []domain.RecipeIngredientRequest{
		{ID: flour.ID.String(), Amount: 200},
		{ID: milk.ID.String(), Amount: 300},
	}, breakfast.ID.String())

	resp, err := env.service.CreateRecipe(ctx, author.ID.String(), req)
	require.NoError(t, err)

	assert.Equal(t, "pancakes", resp.Name)
	assert.Equal(t, "chef", resp.Author.Username)
	require.Len(t, resp.Ingredients, 2)
	require.Len(t, resp.Tags, 1)
	assert.Equal(t, "breakfast", resp.Tags[0].Slug)
	assert.False(t, resp.IsFavorited)
	assert.False(t, resp.IsInShoppingCart)
}

func TestCreateRecipeUploadsImage(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	flour := createTestIngredient(t, env.db, "flour", "g")

	req := saveRequest("bread", []domain.RecipeIngredientRequest{
		{ID: flour.ID.String(), Amount: 500},
	})
	// A 1x1 transparent gif.
	req.Image = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

	resp, err := env.service.CreateRecipe(ctx, author.ID.String(), req)
	require.NoError(t, err)
	assert.Contains(t, resp.ImageURL, "https://cdn.test/recipes/")
	assert.Contains(t, resp.ImageURL, ".gif")
}

func TestCreateRecipeRejectsBadInput(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	flour := createTestIngredient(t, env.db, "flour", "g")

	t.Run("zero cooking time", func(t *testing.T) {
		req := saveRequest("bread", []domain.RecipeIngredientRequest{
			{ID: flour.ID.String(), Amount: 100},
		})
		req.CookingTime = 0
		_, err := env.service.CreateRecipe(ctx, author.ID.String(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidCookingTime)
	})

	t.Run("zero amount", func(t *testing.T) {
		req := saveRequest("bread", []domain.RecipeIngredientRequest{
			{ID: flour.ID.String(), Amount: 0},
		})
		_, err := env.service.CreateRecipe(ctx, author.ID.String(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("repeated ingredient", func(t *testing.T) {
		req := saveRequest("bread", []domain.RecipeIngredientRequest{
			{ID: flour.ID.String(), Amount: 100},
			{ID: flour.ID.String(), Amount: 200},
		})
		_, err := env.service.CreateRecipe(ctx, author.ID.String(), req)
		assert.ErrorIs(t, err, domain.ErrDuplicateIngredient)
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		req := saveRequest("bread", []domain.RecipeIngredientRequest{
			{ID: "11111111-1111-1111-1111-111111111111", Amount: 100},
		})
		_, err := env.service.CreateRecipe(ctx, author.ID.String(), req)
		assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
	})
}

func TestCreateRecipeNameTakenPerAuthor(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	chef := createTestUser(t, env.db, "chef")
	rival := createTestUser(t, env.db, "rival")
	flour := createTestIngredient(t, env.db, "flour", "g")

	req := saveRequest("bread", []domain.RecipeIngredientRequest{
		{ID: flour.ID.String(), Amount: 100},
	})

	_, err := env.service.CreateRecipe(ctx, chef.ID.String(), req)
	require.NoError(t, err)

	_, err = env.service.CreateRecipe(ctx, chef.ID.String(), req)
	assert.ErrorIs(t, err, domain.ErrRecipeNameTaken)

	// A different author may reuse the name.
	_, err = env.service.CreateRecipe(ctx, rival.ID.String(), req)
	assert.NoError(t, err)
}

func TestUpdateRecipeReplacesAssociations(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	flour := createTestIngredient(t, env.db, "flour", "g")
	sugar := createTestIngredient(t, env.db, "sugar", "g")
	breakfast := createTestTag(t, env.db, "breakfast", "#E26C2D", "breakfast")
	dinner := createTestTag(t, env.db, "dinner", "#49B64E", "dinner")

	created, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 5}},
		breakfast.ID.String(),
	))
	require.NoError(t, err)

	updated, err := env.service.UpdateRecipe(ctx, author.ID.String(), created.ID, saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: sugar.ID.String(), Amount: 3}},
		dinner.ID.String(),
	))
	require.NoError(t, err)

	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "sugar", updated.Ingredients[0].Name)
	assert.Equal(t, 3, updated.Ingredients[0].Amount)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "dinner", updated.Tags[0].Slug)

	// The old rows are gone, not orphaned.
	var ingredientRows, tagRows int64
	require.NoError(t, env.db.Model(&entities.RecipeIngredient{}).
		Where("recipe_id = ?", created.ID).Count(&ingredientRows).Error)
	require.NoError(t, env.db.Model(&entities.RecipeTag{}).
		Where("recipe_id = ?", created.ID).Count(&tagRows).Error)
	assert.Equal(t, int64(1), ingredientRows)
	assert.Equal(t, int64(1), tagRows)
}

func TestUpdateRecipeOnlyByAuthor(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	stranger := createTestUser(t, env.db, "stranger")
	flour := createTestIngredient(t, env.db, "flour", "g")

	created, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 5}},
	))
	require.NoError(t, err)

	_, err = env.service.UpdateRecipe(ctx, stranger.ID.String(), created.ID, saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 1}},
	))
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)

	err = env.service.DeleteRecipe(ctx, stranger.ID.String(), created.ID)
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
}

func TestDeleteRecipeRemovesRelations(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	fan := createTestUser(t, env.db, "fan")
	flour := createTestIngredient(t, env.db, "flour", "g")

	created, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 5}},
	))
	require.NoError(t, err)

	_, err = env.service.AddFavorite(ctx, fan.ID.String(), created.ID)
	require.NoError(t, err)
	_, err = env.service.AddToShoppingCart(ctx, fan.ID.String(), created.ID)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteRecipe(ctx, author.ID.String(), created.ID))

	_, err = env.service.GetRecipeDetail(ctx, "", created.ID)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	var favorites, cartEntries int64
	require.NoError(t, env.db.Model(&entities.Favorite{}).
		Where("recipe_id = ?", created.ID).Count(&favorites).Error)
	require.NoError(t, env.db.Model(&entities.ShoppingCartEntry{}).
		Where("recipe_id = ?", created.ID).Count(&cartEntries).Error)
	assert.Zero(t, favorites)
	assert.Zero(t, cartEntries)
}

func TestViewerFlags(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	fan := createTestUser(t, env.db, "fan")
	flour := createTestIngredient(t, env.db, "flour", "g")

	created, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 5}},
	))
	require.NoError(t, err)

	_, err = env.service.AddFavorite(ctx, fan.ID.String(), created.ID)
	require.NoError(t, err)
	_, err = env.service.AddToShoppingCart(ctx, fan.ID.String(), created.ID)
	require.NoError(t, err)

	detail, err := env.service.GetRecipeDetail(ctx, fan.ID.String(), created.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsFavorited)
	assert.True(t, detail.IsInShoppingCart)

	// The author never touched the recipe, so their flags stay down.
	detail, err = env.service.GetRecipeDetail(ctx, author.ID.String(), created.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsFavorited)
	assert.False(t, detail.IsInShoppingCart)

	// Anonymous viewers always see both flags down.
	detail, err = env.service.GetRecipeDetail(ctx, "", created.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsFavorited)
	assert.False(t, detail.IsInShoppingCart)
}

func TestGetRecipesTagUnionFilter(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	flour := createTestIngredient(t, env.db, "flour", "g")
	breakfast := createTestTag(t, env.db, "breakfast", "#E26C2D", "breakfast")
	dinner := createTestTag(t, env.db, "dinner", "#49B64E", "dinner")
	dessert := createTestTag(t, env.db, "dessert", "#8775D2", "dessert")

	ingredients := []domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 1}}

	_, err := env.service.CreateRecipe(ctx, author.ID.String(),
		saveRequest("omelette", ingredients, breakfast.ID.String()))
	require.NoError(t, err)
	_, err = env.service.CreateRecipe(ctx, author.ID.String(),
		saveRequest("stew", ingredients, dinner.ID.String()))
	require.NoError(t, err)
	// Tagged with both filter slugs; must still appear exactly once.
	_, err = env.service.CreateRecipe(ctx, author.ID.String(),
		saveRequest("brunch pie", ingredients, breakfast.ID.String(), dinner.ID.String()))
	require.NoError(t, err)
	_, err = env.service.CreateRecipe(ctx, author.ID.String(),
		saveRequest("pudding", ingredients, dessert.ID.String()))
	require.NoError(t, err)

	recipes, total, err := env.service.GetRecipes(ctx, "", domain.RecipeFilter{
		TagSlugs: []string{"breakfast", "dinner"},
		Page:     1,
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, recipes, 3)

	names := make(map[string]int)
	for _, r := range recipes {
		names[r.Name]++
	}
	assert.Equal(t, 1, names["brunch pie"])
	assert.Zero(t, names["pudding"])
}

func TestGetRecipesFavoritedFilter(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	fan := createTestUser(t, env.db, "fan")
	flour := createTestIngredient(t, env.db, "flour", "g")
	ingredients := []domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 1}}

	liked, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest("liked", ingredients))
	require.NoError(t, err)
	_, err = env.service.CreateRecipe(ctx, author.ID.String(), saveRequest("other", ingredients))
	require.NoError(t, err)

	_, err = env.service.AddFavorite(ctx, fan.ID.String(), liked.ID)
	require.NoError(t, err)

	recipes, total, err := env.service.GetRecipes(ctx, fan.ID.String(), domain.RecipeFilter{
		FavoritedOnly: true,
		Page:          1,
		Limit:         10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, recipes, 1)
	assert.Equal(t, "liked", recipes[0].Name)
	assert.True(t, recipes[0].IsFavorited)
}

func TestFavoriteToggle(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	fan := createTestUser(t, env.db, "fan")
	flour := createTestIngredient(t, env.db, "flour", "g")

	created, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 5}},
	))
	require.NoError(t, err)

	short, err := env.service.AddFavorite(ctx, fan.ID.String(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, short.ID)
	assert.Equal(t, "cake", short.Name)

	_, err = env.service.AddFavorite(ctx, fan.ID.String(), created.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)

	require.NoError(t, env.service.RemoveFavorite(ctx, fan.ID.String(), created.ID))
	err = env.service.RemoveFavorite(ctx, fan.ID.String(), created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFavorited)
}

func TestShoppingCartToggle(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	fan := createTestUser(t, env.db, "fan")
	flour := createTestIngredient(t, env.db, "flour", "g")

	created, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 5}},
	))
	require.NoError(t, err)

	_, err = env.service.AddToShoppingCart(ctx, fan.ID.String(), created.ID)
	require.NoError(t, err)
	_, err = env.service.AddToShoppingCart(ctx, fan.ID.String(), created.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyInCart)

	require.NoError(t, env.service.RemoveFromShoppingCart(ctx, fan.ID.String(), created.ID))
	err = env.service.RemoveFromShoppingCart(ctx, fan.ID.String(), created.ID)
	assert.ErrorIs(t, err, domain.ErrNotInCart)
}

func TestShoppingListAggregation(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	author := createTestUser(t, env.db, "chef")
	flour := createTestIngredient(t, env.db, "flour", "g")
	sugar := createTestIngredient(t, env.db, "sugar", "g")

	first, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"bread",
		[]domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 200}},
	))
	require.NoError(t, err)
	second, err := env.service.CreateRecipe(ctx, author.ID.String(), saveRequest(
		"cake",
		[]domain.RecipeIngredientRequest{
			{ID: flour.ID.String(), Amount: 100},
			{ID: sugar.ID.String(), Amount: 50},
		},
	))
	require.NoError(t, err)

	_, err = env.service.AddToShoppingCart(ctx, author.ID.String(), first.ID)
	require.NoError(t, err)
	_, err = env.service.AddToShoppingCart(ctx, author.ID.String(), second.ID)
	require.NoError(t, err)

	items, err := env.service.GetShoppingList(ctx, author.ID.String())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "flour", items[0].Name)
	assert.Equal(t, 300, items[0].TotalAmount)
	assert.Equal(t, "sugar", items[1].Name)
	assert.Equal(t, 50, items[1].TotalAmount)

	text := RenderShoppingList(items)
	assert.Equal(t, "1. flour - 300 g\n2. sugar - 50 g\n", text)
}

func TestShoppingListEmptyCart(t *testing.T) {
	env := setupRecipeTest(t)
	ctx := context.Background()

	u := createTestUser(t, env.db, "lonely")

	items, err := env.service.GetShoppingList(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, "", RenderShoppingList(items))
}
