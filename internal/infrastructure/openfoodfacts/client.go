package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/infrastructure/cache"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"
)

const searchPath = "/cgi/search.pl"

var searchFields = strings.Join([]string{
	"code", "product_name", "generic_name", "categories_tags",
	"serving_size", "serving_quantity", "nutriments", "unique_scans_n",
}, ",")

// 營養素欄位對照；scale 為換算到內部單位的倍數（OFF 的礦物質以公克計）
var nutrimentFields = []struct {
	key   string
	code  nutrient.Code
	scale float64
}{
	{"energy-kcal", nutrient.Energy, 1},
	{"carbohydrates", nutrient.Carbohydrate, 1},
	{"sugars", nutrient.Sugar, 1},
	{"fiber", nutrient.Fiber, 1},
	{"sodium", nutrient.Sodium, 1000},
	{"potassium", nutrient.Potassium, 1000},
	{"fat", nutrient.TotalFat, 1},
	{"saturated-fat", nutrient.SaturatedFat, 1},
	{"trans-fat", nutrient.TransFat, 1},
	{"cholesterol", nutrient.Cholesterol, 1000},
	{"proteins", nutrient.Protein, 1},
	{"phosphorus", nutrient.Phosphorus, 1000},
}

// Client 以 Open Food Facts 搜尋 API 實作 food.Store，作為一般資料庫
type Client struct {
	client   *resty.Client
	cache    *cache.Manager
	pageSize int
}

type product struct {
	Code            string                 `json:"code"`
	ProductName     string                 `json:"product_name"`
	GenericName     string                 `json:"generic_name"`
	CategoriesTags  []string               `json:"categories_tags"`
	ServingSize     string                 `json:"serving_size"`
	ServingQuantity interface{}            `json:"serving_quantity"`
	Nutriments      map[string]interface{} `json:"nutriments"`
	UniqueScans     float64                `json:"unique_scans_n"`
}

type searchResponse struct {
	Count    int       `json:"count"`
	Products []product `json:"products"`
}

// NewClient 創建 Open Food Facts 客戶端；cacheManager 可為 nil
func NewClient(cfg config.GeneralCorpusConfig, cacheManager *cache.Manager) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	return &Client{client: client, cache: cacheManager, pageSize: pageSize}
}

// FindByName 產品名稱完全相符
func (c *Client) FindByName(ctx context.Context, name string) (*food.Record, error) {
	products, err := c.search(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if strings.EqualFold(strings.TrimSpace(p.ProductName), name) {
			return p.toRecord(), nil
		}
	}
	return nil, food.ErrNotFound
}

// FindByAlias 以 generic_name 作為別名
func (c *Client) FindByAlias(ctx context.Context, alias string) (*food.Record, error) {
	products, err := c.search(ctx, alias)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.GenericName != "" && strings.EqualFold(strings.TrimSpace(p.GenericName), alias) {
			return p.toRecord(), nil
		}
	}
	return nil, food.ErrNotFound
}

// Search 依 API 的相關度排序回傳
func (c *Client) Search(ctx context.Context, tokens []string, limit int) ([]food.Record, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	products, err := c.search(ctx, strings.Join(tokens, " "))
	if err != nil {
		return nil, err
	}
	out := make([]food.Record, 0, limit)
	for _, p := range products {
		if len(out) == limit {
			break
		}
		if p.ProductName == "" {
			continue
		}
		out = append(out, *p.toRecord())
	}
	return out, nil
}

// FindByFragment 名稱含有片段的產品中，掃描次數最多者
func (c *Client) FindByFragment(ctx context.Context, fragment string) (*food.Record, error) {
	products, err := c.search(ctx, fragment)
	if err != nil {
		return nil, err
	}
	var best *product
	for i := range products {
		p := &products[i]
		if !strings.Contains(strings.ToLower(p.ProductName), fragment) {
			continue
		}
		if best == nil || p.UniqueScans > best.UniqueScans {
			best = p
		}
	}
	if best == nil {
		return nil, food.ErrNotFound
	}
	return best.toRecord(), nil
}

func (c *Client) search(ctx context.Context, terms string) ([]product, error) {
	key := cache.Key("off", "search", strings.ToLower(terms), strconv.Itoa(c.pageSize))
	if body, ok := c.cache.Get(key); ok {
		return decode(body)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_terms":  terms,
			"search_simple": "1",
			"action":        "process",
			"json":          "1",
			"page_size":     strconv.Itoa(c.pageSize),
			"fields":        searchFields,
		}).
		Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Open Food Facts: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Open Food Facts returned status %d", resp.StatusCode())
	}

	products, err := decode(resp.Body())
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(key, resp.Body()); err != nil {
		common.LogWarn("Failed to cache Open Food Facts response", zap.Error(err))
	}
	return products, nil
}

func decode(body []byte) ([]product, error) {
	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse Open Food Facts response: %w", err)
	}
	return result.Products, nil
}

// toRecord 換算為每份營養素；沒有份量資訊時以 100g 為一份
func (p product) toRecord() *food.Record {
	grams := number(p.ServingQuantity)
	serving := p.ServingSize
	if grams <= 0 {
		grams = 100
		serving = "100 g"
	}

	amounts := make(nutrient.Amounts)
	for _, f := range nutrimentFields {
		raw, ok := p.Nutriments[f.key+"_100g"]
		if !ok {
			continue
		}
		amounts[f.code] = number(raw) * f.scale * grams / 100
	}

	var aliases []string
	if g := strings.ToLower(strings.TrimSpace(p.GenericName)); g != "" {
		aliases = []string{g}
	}
	tags := make([]string, 0, len(p.CategoriesTags))
	for _, t := range p.CategoriesTags {
		if i := strings.Index(t, ":"); i >= 0 {
			t = t[i+1:]
		}
		tags = append(tags, t)
	}

	return &food.Record{
		ID:           "off:" + p.Code,
		Name:         strings.TrimSpace(p.ProductName),
		Aliases:      aliases,
		Tags:         tags,
		Serving:      serving,
		ServingGrams: grams,
		Nutrients:    amounts,
		Corpus:       food.SourceGeneral,
		Popularity:   p.UniqueScans,
	}
}

// number OFF 的數值欄位可能是數字或字串
func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
