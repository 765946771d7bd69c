package ingredient

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lashkinse/foodgram-backend/domain"
	"github.com/lashkinse/foodgram-backend/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupIngredientTest(t *testing.T) (IngredientService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Ingredient{}))

	return NewIngredientService(NewIngredientRepository(db)), db
}

func TestImportFromCSV(t *testing.T) {
	service, db := setupIngredientTest(t)
	ctx := context.Background()

	csv := "flour,g\nmilk,ml\negg,pcs\n"
	count, err := service.ImportFromCSV(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var stored int64
	require.NoError(t, db.Model(&entities.Ingredient{}).Count(&stored).Error)
	assert.Equal(t, int64(3), stored)
}

func TestImportFromCSVRejectsBadRow(t *testing.T) {
	service, _ := setupIngredientTest(t)
	ctx := context.Background()

	_, err := service.ImportFromCSV(ctx, strings.NewReader("flour,g,extra\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 columns")
}

func TestGetIngredientsPrefixSearch(t *testing.T) {
	service, _ := setupIngredientTest(t)
	ctx := context.Background()

	_, err := service.ImportFromCSV(ctx, strings.NewReader("Milk,ml\nmint,g\nflour,g\n"))
	require.NoError(t, err)

	// Prefix match is case-insensitive.
	found, err := service.GetIngredients(ctx, "mi")
	require.NoError(t, err)
	require.Len(t, found, 2)

	found, err = service.GetIngredients(ctx, "flo")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "flour", found[0].Name)

	// No prefix returns everything.
	found, err = service.GetIngredients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestGetIngredientNotFound(t *testing.T) {
	service, _ := setupIngredientTest(t)
	ctx := context.Background()

	_, err := service.GetIngredient(ctx, "11111111-1111-1111-1111-111111111111")
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}
