package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/pkg/common"
)

const regionalSeed = `
corpus: regional
foods:
  - name: Char Kuey Teow
    local_name: char kway teow
    aliases: [ckt, kuey teow goreng]
    tags: [noodles, fried]
    serving: 1 plate
    serving_grams: 310
    nutrients:
      energy: 744
      sodium: 1460
      saturated-fat: 9.8
    glycemic_category: high
    ratings:
      htn: avoid
      dm: limit
    verified: true
    popularity: 90
`

func TestParseSeed(t *testing.T) {
	recs, err := ParseSeed([]byte(regionalSeed), "")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, food.SourceRegional, rec.Corpus)
	assert.Equal(t, []string{"ckt", "kuey teow goreng"}, rec.Aliases)
	assert.Equal(t, 9.8, rec.Nutrients[nutrient.SaturatedFat])
	assert.Equal(t, "avoid", rec.RatingFor(nutrient.Hypertension))
	assert.Equal(t, "limit", rec.RatingFor(nutrient.Diabetes))
}

func TestParseSeed_CorpusOverride(t *testing.T) {
	recs, err := ParseSeed([]byte(regionalSeed), food.SourceGeneral)
	require.NoError(t, err)
	assert.Equal(t, food.SourceGeneral, recs[0].Corpus)
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad corpus":       "corpus: estimated\nfoods: []\n",
		"unknown nutrient": "corpus: regional\nfoods:\n  - name: x\n    nutrients: {vitamin_q: 1}\n",
		"missing name":     "corpus: regional\nfoods:\n  - serving: 1 cup\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed([]byte(doc), "")
			require.Error(t, err)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regional.yaml")
	require.NoError(t, os.WriteFile(path, []byte(regionalSeed), 0o600))

	recs, err := LoadSeedFile(path, "")
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestBundledSeedFiles(t *testing.T) {
	for _, tc := range []struct {
		file   string
		corpus food.Source
	}{
		{"regional.yaml", food.SourceRegional},
		{"general.yaml", food.SourceGeneral},
	} {
		t.Run(tc.file, func(t *testing.T) {
			records, err := LoadSeedFile(filepath.Join("..", "..", "..", "data", "seed", tc.file), "")
			require.NoError(t, err)
			require.NotEmpty(t, records)
			for _, rec := range records {
				assert.Equal(t, tc.corpus, rec.Corpus)
				assert.NotEmpty(t, rec.Nutrients, rec.Name)
			}
		})
	}
}
