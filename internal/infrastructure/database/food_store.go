package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"nutrition-engine/internal/core/food"
)

const searchDocument = `to_tsvector('simple', name || ' ' || coalesce(local_name, '') || ' ' || coalesce(array_to_string(aliases, ' '), ''))`

var searchSQL = `SELECT * FROM foods
WHERE corpus = ? AND ` + searchDocument + ` @@ to_tsquery('simple', ?)
ORDER BY ts_rank(` + searchDocument + `, to_tsquery('simple', ?)) DESC, popularity DESC, id
LIMIT ?`

// FoodStore 以 PostgreSQL 實作 food.Store，每個實例只查詢單一 corpus
type FoodStore struct {
	db     *gorm.DB
	corpus food.Source
}

// NewFoodStore 創建食物資料庫查詢
func NewFoodStore(db *gorm.DB, corpus food.Source) *FoodStore {
	return &FoodStore{db: db, corpus: corpus}
}

// FindByName 名稱或在地名稱完全相符（不分大小寫）
func (s *FoodStore) FindByName(ctx context.Context, name string) (*food.Record, error) {
	var row FoodRow
	err := s.db.WithContext(ctx).
		Where("corpus = ? AND (LOWER(name) = ? OR LOWER(local_name) = ?)", string(s.corpus), name, name).
		Order("popularity DESC").
		First(&row).Error
	return s.one(row, err, "name")
}

// FindByAlias alias 陣列包含候選名稱
func (s *FoodStore) FindByAlias(ctx context.Context, alias string) (*food.Record, error) {
	var row FoodRow
	err := s.db.WithContext(ctx).
		Where("corpus = ? AND ? = ANY(aliases)", string(s.corpus), strings.ToLower(alias)).
		Order("popularity DESC").
		First(&row).Error
	return s.one(row, err, "alias")
}

// Search 全文檢索，依相關度與熱門度排序
func (s *FoodStore) Search(ctx context.Context, tokens []string, limit int) ([]food.Record, error) {
	query := tsQuery(tokens)
	if query == "" {
		return nil, nil
	}

	var rows []FoodRow
	if err := s.db.WithContext(ctx).Raw(searchSQL, string(s.corpus), query, query, limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search %s foods: %w", s.corpus, err)
	}

	out := make([]food.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// FindByFragment 名稱包含片段，取最熱門的一筆
func (s *FoodStore) FindByFragment(ctx context.Context, fragment string) (*food.Record, error) {
	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"

	var row FoodRow
	err := s.db.WithContext(ctx).
		Where("corpus = ? AND (name ILIKE ? OR local_name ILIKE ?)", string(s.corpus), pattern, pattern).
		Order("popularity DESC").
		First(&row).Error
	return s.one(row, err, "fragment")
}

func (s *FoodStore) one(row FoodRow, err error, by string) (*food.Record, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, food.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s food by %s: %w", s.corpus, by, err)
	}
	rec, err := row.toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// tsQuery 每個 token 只保留字母與數字，以前綴比對並用 OR 串接
func tsQuery(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, t)
		if clean != "" {
			parts = append(parts, clean+":*")
		}
	}
	return strings.Join(parts, " | ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
