package subscription

import (
	"context"
	"fmt"
	"testing"

	"github.com/lashkinse/foodgram-backend/domain"
	"github.com/lashkinse/foodgram-backend/entities"
	"github.com/lashkinse/foodgram-backend/pkg/recipe"
	"github.com/lashkinse/foodgram-backend/pkg/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSubscriptionTest(t *testing.T) (SubscriptionService, *gorm.DB) {
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

	service := NewSubscriptionService(user.NewUserRepository(db), recipe.NewRecipeRepository(db))
	return service, db
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

func createTestRecipe(t *testing.T, db *gorm.DB, authorID uuid.UUID, name string) *entities.Recipe {
	t.Helper()
	r := &entities.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Text:        "instructions",
		CookingTime: 10,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func TestSubscribe(t *testing.T) {
	service, db := setupSubscriptionTest(t)
	ctx := context.Background()

	follower := createTestUser(t, db, "follower")
	author := createTestUser(t, db, "author")
	createTestRecipe(t, db, author.ID, "soup")
	createTestRecipe(t, db, author.ID, "salad")

	resp, err := service.Subscribe(ctx, follower.ID.String(), author.ID.String(), 10)
	require.NoError(t, err)
	assert.Equal(t, "author", resp.Username)
	assert.True(t, resp.IsSubscribed)
	assert.Equal(t, int64(2), resp.RecipesCount)
	assert.Len(t, resp.Recipes, 2)
}

func TestSubscribeRecipesLimit(t *testing.T) {
	service, db := setupSubscriptionTest(t)
	ctx := context.Background()

	follower := createTestUser(t, db, "follower")
	author := createTestUser(t, db, "author")
	for i := 0; i < 5; i++ {
		createTestRecipe(t, db, author.ID, fmt.Sprintf("dish-%d", i))
	}

	resp, err := service.Subscribe(ctx, follower.ID.String(), author.ID.String(), 2)
	require.NoError(t, err)
	assert.Len(t, resp.Recipes, 2)
	// The count reflects everything the author published, not the preview.
	assert.Equal(t, int64(5), resp.RecipesCount)
}

func TestSubscribeSelfAlwaysRejected(t *testing.T) {
	service, db := setupSubscriptionTest(t)
	ctx := context.Background()

	u := createTestUser(t, db, "narcissist")

	_, err := service.Subscribe(ctx, u.ID.String(), u.ID.String(), 10)
	assert.ErrorIs(t, err, domain.ErrSelfFollow)

	// Still rejected on a second attempt; never ErrAlreadyFollowing.
	_, err = service.Subscribe(ctx, u.ID.String(), u.ID.String(), 10)
	assert.ErrorIs(t, err, domain.ErrSelfFollow)
}

func TestSubscribeDuplicate(t *testing.T) {
	service, db := setupSubscriptionTest(t)
	ctx := context.Background()

	follower := createTestUser(t, db, "follower")
	author := createTestUser(t, db, "author")

	_, err := service.Subscribe(ctx, follower.ID.String(), author.ID.String(), 10)
	require.NoError(t, err)

	_, err = service.Subscribe(ctx, follower.ID.String(), author.ID.String(), 10)
	assert.ErrorIs(t, err, domain.ErrAlreadyFollowing)
}

func TestSubscribeUnknownAuthor(t *testing.T) {
	service, db := setupSubscriptionTest(t)
	ctx := context.Background()

	follower := createTestUser(t, db, "follower")

	_, err := service.Subscribe(ctx, follower.ID.String(), uuid.NewString(), 10)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUnsubscribe(t *testing.T) {
	service, db := setupSubscriptionTest(t)
	ctx := context.Background()

	follower := createTestUser(t, db, "follower")
	author := createTestUser(t, db, "author")

	_, err := service.Subscribe(ctx, follower.ID.String(), author.ID.String(), 10)
	require.NoError(t, err)

	require.NoError(t, service.Unsubscribe(ctx, follower.ID.String(), author.ID.String()))

	err = service.Unsubscribe(ctx, follower.ID.String(), author.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFollowing)
}

func TestGetSubscriptions(t *testing.T) {
	service, db := setupSubscriptionTest(t)
	ctx := context.Background()

	follower := createTestUser(t, db, "follower")
	first := createTestUser(t, db, "first")
	second := createTestUser(t, db, "second")
	outsider := createTestUser(t, db, "outsider")
	createTestRecipe(t, db, first.ID, "soup")

	_, err := service.Subscribe(ctx, follower.ID.String(), first.ID.String(), 10)
	require.NoError(t, err)
	_, err = service.Subscribe(ctx, follower.ID.String(), second.ID.String(), 10)
	require.NoError(t, err)

	subs, total, err := service.GetSubscriptions(ctx, follower.ID.String(), 1, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, subs, 2)
	for _, sub := range subs {
		assert.True(t, sub.IsSubscribed)
		assert.NotEqual(t, outsider.Username, sub.Username)
	}
}
