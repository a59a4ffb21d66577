package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/infrastructure/config"
)

func TestNewService_AppliesNutritionConfig(t *testing.T) {
	cfg := &config.Config{
		Resolver: config.ResolverConfig{SearchLimit: 5, DefaultConfidence: 0.5},
		Queue:    config.QueueConfig{Workers: 1, MaxSize: 10},
		Nutrition: config.NutritionConfig{
			ReferenceWeightKg: 70,
			Defaults:          map[string]float64{"sodium": 2000},
		},
	}

	svc, err := NewService(cfg, Stores{}, nil, nil)
	require.NoError(t, err)

	targets, err := svc.ComputeNutrientTargets(nutrient.Profile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, targets[nutrient.Sodium].Value)
	assert.InDelta(t, 56.0, targets[nutrient.Protein].Value, 1e-9)
}

func TestNewService_RejectsInvalidNutritionConfig(t *testing.T) {
	cfg := &config.Config{Nutrition: config.NutritionConfig{Defaults: map[string]float64{"protein": 50}}}
	_, err := NewService(cfg, Stores{}, nil, nil)
	assert.Error(t, err)

	cfg = &config.Config{Nutrition: config.NutritionConfig{ReferenceWeightKg: -5}}
	_, err = NewService(cfg, Stores{}, nil, nil)
	assert.Error(t, err)
}

func TestNewService_ZeroDefaultConfidenceIsKept(t *testing.T) {
	cfg := &config.Config{
		Resolver: config.ResolverConfig{SearchLimit: 5, DefaultConfidence: 0},
		Queue:    config.QueueConfig{Workers: 1, MaxSize: 10},
	}
	svc, err := NewService(cfg, Stores{}, nil, nil)
	require.NoError(t, err)

	res := svc.ResolveFood(context.Background(), food.Request{Name: "mystery stew"})
	assert.Equal(t, food.SourceEstimated, res.Source)
	assert.Equal(t, 0.0, res.Confidence)
}
