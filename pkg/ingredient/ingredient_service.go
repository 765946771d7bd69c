package ingredient

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/lashkinse/foodgram-backend/domain"
	"github.com/lashkinse/foodgram-backend/entities"

	"gorm.io/gorm"
)

type (
	IngredientService interface {
		GetIngredients(ctx context.Context, namePrefix string) ([]domain.IngredientResponse, error)
		GetIngredient(ctx context.Context, id string) (domain.IngredientResponse, error)
		ImportFromCSV(ctx context.Context, reader io.Reader) (int, error)
	}

	ingredientService struct {
		ingredientRepository IngredientRepository
	}
)

func NewIngredientService(ingredientRepository IngredientRepository) IngredientService {
	return &ingredientService{ingredientRepository: ingredientRepository}
}

func ToIngredientResponse(ingredient *entities.Ingredient) domain.IngredientResponse {
	return domain.IngredientResponse{
		ID:              ingredient.ID.String(),
		Name:            ingredient.Name,
		MeasurementUnit: ingredient.MeasurementUnit,
	}
}

func (s *ingredientService) GetIngredients(ctx context.Context, namePrefix string) ([]domain.IngredientResponse, error) {
	ingredients, err := s.ingredientRepository.GetIngredients(ctx, namePrefix)
	if err != nil {
		return nil, err
	}

	res := make([]domain.IngredientResponse, 0, len(ingredients))
	for _, ingredient := range ingredients {
		res = append(res, ToIngredientResponse(ingredient))
	}
	return res, nil
}

func (s *ingredientService) GetIngredient(ctx context.Context, id string) (domain.IngredientResponse, error) {
	ingredient, err := s.ingredientRepository.GetIngredientByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.IngredientResponse{}, domain.ErrIngredientNotFound
		}
		return domain.IngredientResponse{}, err
	}
	return ToIngredientResponse(ingredient), nil
}

// ImportFromCSV bulk-loads ingredients from a two-column (name,
// measurement_unit) source. One-time setup task, not a runtime path.
func (s *ingredientService) ImportFromCSV(ctx context.Context, reader io.Reader) (int, error) {
	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return 0, err
	}

	ingredients := make([]entities.Ingredient, 0, len(records))
	for i, record := range records {
		if len(record) != 2 {
			return 0, fmt.Errorf("line %d: expected 2 columns, got %d", i+1, len(record))
		}
		ingredients = append(ingredients, entities.Ingredient{
			Name:            record[0],
			MeasurementUnit: record[1],
		})
	}

	if err := s.ingredientRepository.BulkCreateIngredients(ctx, ingredients); err != nil {
		return 0, err
	}
	return len(ingredients), nil
}
