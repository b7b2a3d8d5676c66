package seeds

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"github.com/EngCalc/calc-backend/internal/storage"
)

//go:embed data/calculations.json
var calculationsJSON []byte

type sampleCalculation struct {
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Material    *string      `json:"material"`
	Inputs      storage.JSON `json:"inputs"`
	Results     storage.JSON `json:"results"`
}

// SeedCalculations stores the sample calculations for userID and returns
// their ids in file order.
func SeedCalculations(ctx context.Context, store storage.CalculationStore, userID string) ([]string, error) {
	var samples []sampleCalculation
	if err := json.Unmarshal(calculationsJSON, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse calculations.json: %w", err)
	}

	ids := make([]string, 0, len(samples))
	for _, s := range samples {
		c, err := store.CreateCalculation(ctx, storage.NewCalculation{
			UserID:      &userID,
			Type:        s.Type,
			Name:        s.Name,
			Description: s.Description,
			Inputs:      s.Inputs,
			Results:     s.Results,
			Material:    s.Material,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create calculation %s: %w", s.Name, err)
		}
		ids = append(ids, c.ID)
	}

	log.Printf("✅ Seeded %d calculations", len(ids))
	return ids, nil
}
