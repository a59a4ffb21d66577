package database

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/pkg/common"
)

// SeedFile 種子資料檔格式
type SeedFile struct {
	Corpus string     `yaml:"corpus"`
	Foods  []SeedFood `yaml:"foods"`
}

// SeedFood 種子資料中的一筆食物
type SeedFood struct {
	Name             string             `yaml:"name"`
	LocalName        string             `yaml:"local_name"`
	Aliases          []string           `yaml:"aliases"`
	Tags             []string           `yaml:"tags"`
	Serving          string             `yaml:"serving"`
	ServingGrams     float64            `yaml:"serving_grams"`
	Nutrients        map[string]float64 `yaml:"nutrients"`
	GlycemicIndex    float64            `yaml:"glycemic_index"`
	GlycemicCategory string             `yaml:"glycemic_category"`
	Ratings          map[string]string  `yaml:"ratings"`
	Verified         bool               `yaml:"verified"`
	Popularity       float64            `yaml:"popularity"`
}

// LoadSeedFile 讀取 YAML 種子檔；corpus 參數不為空時覆寫檔案中的設定
func LoadSeedFile(path string, corpus food.Source) ([]food.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data, corpus)
}

// ParseSeed 解析種子資料並驗證營養素與疾病代碼
func ParseSeed(data []byte, corpus food.Source) ([]food.Record, error) {
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if corpus == "" {
		corpus = food.Source(file.Corpus)
	}
	if corpus != food.SourceRegional && corpus != food.SourceGeneral {
		return nil, common.NewFieldError("corpus", "must be %s or %s, got %q", food.SourceRegional, food.SourceGeneral, corpus)
	}

	records := make([]food.Record, 0, len(file.Foods))
	for i, f := range file.Foods {
		if f.Name == "" {
			return nil, common.NewFieldError("foods", "entry %d has no name", i)
		}
		amounts, err := nutrient.ParseAmounts(f.Nutrients)
		if err != nil {
			return nil, fmt.Errorf("food %q: %w", f.Name, err)
		}
		var ratings map[nutrient.ConditionCode]string
		if len(f.Ratings) > 0 {
			ratings = make(map[nutrient.ConditionCode]string, len(f.Ratings))
			for k, v := range f.Ratings {
				c, err := nutrient.ParseCondition(k)
				if err != nil {
					return nil, fmt.Errorf("food %q: %w", f.Name, err)
				}
				ratings[c.Code] = v
			}
		}
		records = append(records, food.Record{
			Name:             f.Name,
			LocalName:        f.LocalName,
			Aliases:          f.Aliases,
			Tags:             f.Tags,
			Serving:          f.Serving,
			ServingGrams:     f.ServingGrams,
			Nutrients:        amounts,
			GlycemicIndex:    f.GlycemicIndex,
			GlycemicCategory: f.GlycemicCategory,
			Ratings:          ratings,
			Corpus:           corpus,
			Verified:         f.Verified,
			Popularity:       f.Popularity,
		})
	}
	return records, nil
}

// Seed 以 (corpus, name) 為鍵寫入或更新食物資料
func Seed(ctx context.Context, db *gorm.DB, records []food.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([]FoodRow, 0, len(records))
	for _, rec := range records {
		row, err := fromRecord(rec)
		if err != nil {
			return 0, fmt.Errorf("encode %q: %w", rec.Name, err)
		}
		rows = append(rows, row)
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "corpus"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns(seedUpdateColumns),
		}).
		Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("seed foods: %w", err)
	}

	common.LogInfo("Seeded foods", zap.Int("count", len(rows)), zap.String("corpus", rows[0].Corpus))
	return len(rows), nil
}

var seedUpdateColumns = []string{
	"local_name", "aliases", "tags", "serving", "serving_grams", "nutrients",
	"glycemic_index", "glycemic_category", "ratings", "verified", "popularity", "updated_at",
}
