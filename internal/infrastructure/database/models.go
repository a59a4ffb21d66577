package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
)

// FoodRow 兩個資料庫共用同一張表，以 corpus 欄位區分
type FoodRow struct {
	ID               uint           `gorm:"primaryKey"`
	Corpus           string         `gorm:"type:varchar(16);not null;uniqueIndex:idx_foods_corpus_name"`
	Name             string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_foods_corpus_name"`
	LocalName        string         `gorm:"type:varchar(255)"`
	Aliases          pq.StringArray `gorm:"type:text[]"`
	Tags             pq.StringArray `gorm:"type:text[]"`
	Serving          string         `gorm:"type:varchar(128)"`
	ServingGrams     float64
	Nutrients        datatypes.JSON `gorm:"type:jsonb"`
	GlycemicIndex    float64
	GlycemicCategory string         `gorm:"type:varchar(16)"`
	Ratings          datatypes.JSON `gorm:"type:jsonb"`
	Verified         bool           `gorm:"not null;default:false"`
	Popularity       float64        `gorm:"not null;default:0;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 資料表名稱
func (FoodRow) TableName() string {
	return "foods"
}

func (r FoodRow) toRecord() (food.Record, error) {
	rec := food.Record{
		ID:               strconv.FormatUint(uint64(r.ID), 10),
		Name:             r.Name,
		LocalName:        r.LocalName,
		Aliases:          []string(r.Aliases),
		Tags:             []string(r.Tags),
		Serving:          r.Serving,
		ServingGrams:     r.ServingGrams,
		GlycemicIndex:    r.GlycemicIndex,
		GlycemicCategory: r.GlycemicCategory,
		Corpus:           food.Source(r.Corpus),
		Verified:         r.Verified,
		Popularity:       r.Popularity,
	}

	if len(r.Nutrients) > 0 {
		var raw map[string]float64
		if err := json.Unmarshal(r.Nutrients, &raw); err != nil {
			return food.Record{}, fmt.Errorf("decode nutrients of %q: %w", r.Name, err)
		}
		amounts, err := nutrient.ParseAmounts(raw)
		if err != nil {
			return food.Record{}, fmt.Errorf("decode nutrients of %q: %w", r.Name, err)
		}
		rec.Nutrients = amounts
	}

	if len(r.Ratings) > 0 {
		var raw map[string]string
		if err := json.Unmarshal(r.Ratings, &raw); err != nil {
			return food.Record{}, fmt.Errorf("decode ratings of %q: %w", r.Name, err)
		}
		rec.Ratings = make(map[nutrient.ConditionCode]string, len(raw))
		for k, v := range raw {
			rec.Ratings[nutrient.ConditionCode(k)] = v
		}
	}
	return rec, nil
}

func fromRecord(rec food.Record) (FoodRow, error) {
	nutrients, err := json.Marshal(rec.Nutrients)
	if err != nil {
		return FoodRow{}, err
	}
	row := FoodRow{
		Corpus:           string(rec.Corpus),
		Name:             strings.TrimSpace(rec.Name),
		LocalName:        strings.TrimSpace(rec.LocalName),
		Aliases:          lowerAll(rec.Aliases),
		Tags:             lowerAll(rec.Tags),
		Serving:          rec.Serving,
		ServingGrams:     rec.ServingGrams,
		Nutrients:        datatypes.JSON(nutrients),
		GlycemicIndex:    rec.GlycemicIndex,
		GlycemicCategory: rec.GlycemicCategory,
		Verified:         rec.Verified,
		Popularity:       rec.Popularity,
	}
	if len(rec.Ratings) > 0 {
		ratings, err := json.Marshal(rec.Ratings)
		if err != nil {
			return FoodRow{}, err
		}
		row.Ratings = datatypes.JSON(ratings)
	}
	return row, nil
}

// lowerAll alias 一律以小寫儲存，查詢時直接用 = ANY 比對
func lowerAll(in []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
