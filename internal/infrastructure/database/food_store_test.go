package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
)

var foodColumns = []string{
	"id", "corpus", "name", "local_name", "aliases", "tags", "serving", "serving_grams",
	"nutrients", "ratings", "verified", "popularity", "created_at", "updated_at",
}

type FoodStoreTestSuite struct {
	suite.Suite
	conn  *sql.DB
	mock  sqlmock.Sqlmock
	db    *gorm.DB
	store *FoodStore
}

func (s *FoodStoreTestSuite) SetupTest() {
	var err error
	s.conn, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	s.db, err = OpenWithConn(s.conn)
	require.NoError(s.T(), err)
	s.store = NewFoodStore(s.db, food.SourceRegional)
}

func (s *FoodStoreTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.conn.Close()
}

func cktRow(rows *sqlmock.Rows) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		7, "regional", "Char Kuey Teow", "char kway teow", "{ckt,\"kuey teow goreng\"}", "{noodles}", "1 plate", 310.0,
		`{"energy":744,"sodium":1460}`, `{"hypertension":"avoid"}`, true, 90.0, now, now,
	)
}

func (s *FoodStoreTestSuite) TestFindByName_Found() {
	s.mock.ExpectQuery(`SELECT \* FROM "foods" WHERE corpus = .*\(LOWER\(name\) = .* OR LOWER\(local_name\)`).
		WillReturnRows(cktRow(sqlmock.NewRows(foodColumns)))

	rec, err := s.store.FindByName(context.Background(), "char kuey teow")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "7", rec.ID)
	assert.Equal(s.T(), "Char Kuey Teow", rec.Name)
	assert.Equal(s.T(), []string{"ckt", "kuey teow goreng"}, rec.Aliases)
	assert.Equal(s.T(), food.SourceRegional, rec.Corpus)
	assert.Equal(s.T(), 1460.0, rec.Nutrients[nutrient.Sodium])
	assert.Equal(s.T(), "avoid", rec.RatingFor(nutrient.Hypertension))
}

func (s *FoodStoreTestSuite) TestFindByName_NotFound() {
	s.mock.ExpectQuery(`SELECT \* FROM "foods"`).
		WillReturnRows(sqlmock.NewRows(foodColumns))

	_, err := s.store.FindByName(context.Background(), "pizza")
	assert.ErrorIs(s.T(), err, food.ErrNotFound)
}

func (s *FoodStoreTestSuite) TestFindByAlias_QueryError() {
	s.mock.ExpectQuery(`SELECT \* FROM "foods" WHERE corpus = .* ANY\(aliases\)`).
		WillReturnError(errors.New("connection refused"))

	_, err := s.store.FindByAlias(context.Background(), "ckt")
	require.Error(s.T(), err)
	assert.NotErrorIs(s.T(), err, food.ErrNotFound)
	assert.Contains(s.T(), err.Error(), "connection refused")
}

func (s *FoodStoreTestSuite) TestSearch_RankedRows() {
	now := time.Now()
	s.mock.ExpectQuery(`to_tsquery\('simple'`).
		WillReturnRows(cktRow(sqlmock.NewRows(foodColumns)).AddRow(
			9, "regional", "Kuey Teow Soup", "", "{}", "{}", "", 0.0, `{"energy":356}`, `{}`, false, 40.0, now, now,
		))

	recs, err := s.store.Search(context.Background(), []string{"kuey", "teow"}, 5)
	require.NoError(s.T(), err)
	require.Len(s.T(), recs, 2)
	assert.Equal(s.T(), "Char Kuey Teow", recs[0].Name)
	assert.Equal(s.T(), "Kuey Teow Soup", recs[1].Name)
	assert.Empty(s.T(), recs[1].Ratings)
}

func (s *FoodStoreTestSuite) TestSearch_NoUsableTokens() {
	recs, err := s.store.Search(context.Background(), []string{"!!", ""}, 5)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), recs)
}

func (s *FoodStoreTestSuite) TestFindByFragment() {
	s.mock.ExpectQuery(`SELECT \* FROM "foods" WHERE corpus = .* ILIKE`).
		WillReturnRows(cktRow(sqlmock.NewRows(foodColumns)))

	rec, err := s.store.FindByFragment(context.Background(), "kuey")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Char Kuey Teow", rec.Name)
}

func (s *FoodStoreTestSuite) TestMatcherAliasTierOverStore() {
	s.mock.ExpectQuery(`LOWER\(name\)`).WillReturnRows(sqlmock.NewRows(foodColumns))
	s.mock.ExpectQuery(`ANY\(aliases\)`).WillReturnRows(cktRow(sqlmock.NewRows(foodColumns)))

	m := food.NewMatcher(s.store, food.MatcherConfig{Corpus: food.SourceRegional}, nil)
	got := m.Match(context.Background(), "CKT")

	require.NotNil(s.T(), got)
	assert.Equal(s.T(), food.TierAlias, got.Tier)
	assert.Equal(s.T(), 0.95, got.Confidence)
}

func (s *FoodStoreTestSuite) TestSeed_Upsert() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO "foods" .* ON CONFLICT \("corpus","name"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	s.mock.ExpectCommit()

	n, err := Seed(context.Background(), s.db, []food.Record{
		{Name: "Nasi Lemak", Aliases: []string{" NLB "}, Corpus: food.SourceRegional, Nutrients: nutrient.Amounts{nutrient.Energy: 389}},
		{Name: "Roti Canai", Corpus: food.SourceRegional, Nutrients: nutrient.Amounts{nutrient.Energy: 301}},
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, n)
}

func TestFoodStoreTestSuite(t *testing.T) {
	suite.Run(t, new(FoodStoreTestSuite))
}

func TestTSQuery(t *testing.T) {
	assert.Equal(t, "nasi:* | lemak:*", tsQuery([]string{"nasi", "lemak"}))
	assert.Equal(t, "teh:*", tsQuery([]string{"te'h", "&|"}))
	assert.Empty(t, tsQuery(nil))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
}

func TestLowerAll(t *testing.T) {
	assert.Equal(t, []string{"ckt", "char kway teow"}, []string(lowerAll([]string{" CKT", "", "Char Kway Teow"})))
}
