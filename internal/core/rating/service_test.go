package rating

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/core/vital"
	"nutrition-engine/internal/pkg/common"
)

// stubStore 只支援名稱與別名查詢
type stubStore struct {
	records []food.Record
}

func (s *stubStore) FindByName(_ context.Context, name string) (*food.Record, error) {
	for _, r := range s.records {
		if strings.EqualFold(r.Name, name) {
			rec := r
			return &rec, nil
		}
	}
	return nil, food.ErrNotFound
}

func (s *stubStore) FindByAlias(_ context.Context, alias string) (*food.Record, error) {
	for _, r := range s.records {
		for _, a := range r.Aliases {
			if strings.EqualFold(a, alias) {
				rec := r
				return &rec, nil
			}
		}
	}
	return nil, food.ErrNotFound
}

func (s *stubStore) Search(context.Context, []string, int) ([]food.Record, error) {
	return nil, nil
}

func (s *stubStore) FindByFragment(context.Context, string) (*food.Record, error) {
	return nil, food.ErrNotFound
}

type stubIntake struct {
	amounts nutrient.Amounts
	err     error
	userID  string
	day     time.Time
}

func (s *stubIntake) DailyIntake(_ context.Context, userID string, day time.Time) (nutrient.Amounts, error) {
	s.userID, s.day = userID, day
	return s.amounts, s.err
}

type ServiceTestSuite struct {
	suite.Suite
	intake  *stubIntake
	service *Service
}

func (s *ServiceTestSuite) SetupTest() {
	regional := food.NewMatcher(&stubStore{records: []food.Record{{
		ID: "r1", Name: "Char Kuey Teow", Aliases: []string{"ckt"}, Corpus: food.SourceRegional,
		Nutrients: nutrient.Amounts{nutrient.Energy: 744, nutrient.Sodium: 1460, nutrient.SaturatedFat: 9.8},
	}}}, food.MatcherConfig{Corpus: food.SourceRegional, RequireTokenOverlap: true}, nil)
	general := food.NewMatcher(&stubStore{records: []food.Record{{
		ID: "g1", Name: "Fried Rice", Corpus: food.SourceGeneral, Nutrients: nutrient.Amounts{nutrient.Energy: 333},
	}}}, food.MatcherConfig{Corpus: food.SourceGeneral, Floor: food.GeneralFloor}, nil)

	s.intake = &stubIntake{amounts: nutrient.Amounts{nutrient.Sodium: 600}}
	s.service = NewService(
		food.NewResolver(regional, general, food.ResolverConfig{}, nil),
		nutrient.NewEngine(nutrient.DefaultPolicy()),
		s.intake,
		Options{BatchWorkers: 2, BatchMaxSize: 3},
	)
	s.service.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func hypertension() nutrient.Profile {
	return nutrient.Profile{Conditions: []nutrient.Condition{{Code: nutrient.Hypertension}}}
}

func (s *ServiceTestSuite) TestResolveFood() {
	res := s.service.ResolveFood(context.Background(), food.Request{Name: "ckt"})
	s.Equal(food.SourceRegional, res.Source)
	s.Equal(0.95, res.Confidence)

	res = s.service.ResolveFood(context.Background(), food.Request{Name: "fried rice"})
	s.Equal(food.SourceGeneral, res.Source)
	s.False(res.RequiresVerification)
}

func (s *ServiceTestSuite) TestResolveBatch() {
	got, err := s.service.ResolveBatch(context.Background(), []food.Request{{Name: "fried rice"}, {Name: "ckt"}, {Name: "mystery stew"}})
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(food.SourceGeneral, got[0].Source)
	s.Equal(food.SourceRegional, got[1].Source)
	s.Equal(food.SourceEstimated, got[2].Source)

	_, err = s.service.ResolveBatch(context.Background(), make([]food.Request, 4))
	s.ErrorIs(err, common.ErrBatchTooLarge)

	_, err = s.service.ResolveBatch(context.Background(), nil)
	s.True(common.IsValidationError(err))
}

func (s *ServiceTestSuite) TestClassifyReading() {
	st, err := s.service.ClassifyReading(VitalReading{Type: "bp", Values: []float64{150, 95}})
	s.Require().NoError(err)
	s.Equal(vital.High, st.Level)

	_, err = s.service.ClassifyReading(VitalReading{Type: "heart_rate", Values: []float64{70}})
	s.True(common.IsValidationError(err))
}

func (s *ServiceTestSuite) TestWarningsFromStoredIntake() {
	report, err := s.service.Warnings(context.Background(), WarningsRequest{
		Profile: hypertension(),
		Intake:  Intake{UserID: "u-1"},
		Vitals:  []VitalReading{{Type: "blood_pressure", Values: []float64{150, 95}}},
	})
	s.Require().NoError(err)

	s.Equal("u-1", s.intake.userID)
	s.Equal("2024-05-01", s.intake.day.Format("2006-01-02"))
	s.Require().Len(report.Warnings, 1)
	s.Equal(nutrient.Sodium, report.Warnings[0].Nutrient)
	s.Equal(nutrient.SeveritySafe, report.Warnings[0].Severity)
	s.Empty(report.Warnings[0].VitalNote)
	s.Require().Len(report.Vitals, 1)
}

func (s *ServiceTestSuite) TestWarningsExplicitIntakeSkipsReader() {
	report, err := s.service.Warnings(context.Background(), WarningsRequest{
		Profile: hypertension(),
		Intake:  Intake{Amounts: map[string]float64{"sodium": 1700}},
	})
	s.Require().NoError(err)
	s.Empty(s.intake.userID)
	s.Equal(nutrient.SeverityLimit, report.Warnings[0].Severity)

	_, err = s.service.Warnings(context.Background(), WarningsRequest{
		Profile: hypertension(),
		Intake:  Intake{Amounts: map[string]float64{"vitamin_z": 1}},
	})
	s.True(common.IsValidationError(err))
}

func (s *ServiceTestSuite) TestCheckFoodAddsBaseline() {
	report, err := s.service.CheckFood(context.Background(), CheckRequest{
		Food:    &food.Request{Name: "ckt"},
		Profile: hypertension(),
		Intake:  Intake{UserID: "u-1", Date: "2024-04-30"},
	})
	s.Require().NoError(err)

	s.Require().NotNil(report.Match)
	s.True(report.Match.Matched)
	s.Equal(1460.0, report.Nutrients[nutrient.Sodium])
	s.Equal(2060.0, report.Projected[nutrient.Sodium])
	s.Equal("2024-04-30", s.intake.day.Format("2006-01-02"))
	s.Require().NotEmpty(report.Warnings)
	s.Equal(nutrient.Sodium, report.Warnings[0].Nutrient)
	s.Equal(nutrient.SeverityLimit, report.Warnings[0].Severity)
}

func (s *ServiceTestSuite) TestCheckFoodRawNutrientsScaled() {
	two := 2.0
	report, err := s.service.CheckFood(context.Background(), CheckRequest{
		Nutrients: map[string]float64{"sodium": 500},
		Servings:  &two,
		Profile:   hypertension(),
	})
	s.Require().NoError(err)
	s.Nil(report.Match)
	s.Nil(report.Baseline)
	s.Equal(1000.0, report.Projected[nutrient.Sodium])
	s.Equal(nutrient.SeveritySafe, report.Warnings[0].Severity)
}

func (s *ServiceTestSuite) TestCheckFoodEstimateCarriedThrough() {
	report, err := s.service.CheckFood(context.Background(), CheckRequest{
		Food:    &food.Request{Name: "grandma special", Estimate: nutrient.Amounts{nutrient.Sugar: 30}},
		Profile: nutrient.Profile{Conditions: []nutrient.Condition{{Code: nutrient.Diabetes}}},
		Intake:  Intake{Amounts: map[string]float64{}},
	})
	s.Require().NoError(err)
	s.Equal(food.SourceEstimated, report.Match.Source)
	s.True(report.Match.RequiresVerification)
	s.Equal(30.0, report.Projected[nutrient.Sugar])
	s.Equal(nutrient.SeverityLimit, report.Warnings[0].Severity)
}

func (s *ServiceTestSuite) TestCheckFoodValidation() {
	ctx := context.Background()
	zero := 0.0

	_, err := s.service.CheckFood(ctx, CheckRequest{Profile: hypertension()})
	s.True(common.IsValidationError(err))

	_, err = s.service.CheckFood(ctx, CheckRequest{
		Food: &food.Request{Name: "ckt"}, Nutrients: map[string]float64{"sodium": 1}, Profile: hypertension(),
	})
	s.True(common.IsValidationError(err))

	_, err = s.service.CheckFood(ctx, CheckRequest{Nutrients: map[string]float64{"sodium": 1}, Servings: &zero})
	s.True(common.IsValidationError(err))
}

func (s *ServiceTestSuite) TestIntakeReaderFailure() {
	s.intake.err = common.ErrIntakeUnavailable.Wrap(errors.New("connection refused"))

	_, err := s.service.Warnings(context.Background(), WarningsRequest{Profile: hypertension(), Intake: Intake{UserID: "u-1"}})
	s.ErrorIs(err, common.ErrIntakeUnavailable)

	_, err = s.service.DailyIntake(context.Background(), "u-1", "yesterday")
	s.True(common.IsValidationError(err))
}

func (s *ServiceTestSuite) TestWarningsInfersCKDStageFromEGFR() {
	weight := 70.0
	profile := nutrient.Profile{Conditions: []nutrient.Condition{{Code: nutrient.CKD}}}
	intake := Intake{Amounts: map[string]float64{"sodium": 500}}

	report, err := s.service.Warnings(context.Background(), WarningsRequest{
		Profile: profile, WeightKg: &weight, Intake: intake,
		Vitals: []VitalReading{{Type: "egfr", Values: []float64{72}}},
	})
	s.Require().NoError(err)
	s.Equal(56.0, report.Targets[nutrient.Protein].Value)
	s.Equal(1000.0, report.Targets[nutrient.Phosphorus].Value)
	s.NotContains(report.Targets, nutrient.Potassium)
	s.Equal(0, profile.Conditions[0].Stage, "caller profile must not change")

	report, err = s.service.Warnings(context.Background(), WarningsRequest{Profile: profile, WeightKg: &weight, Intake: intake})
	s.Require().NoError(err)
	s.Equal(42.0, report.Targets[nutrient.Protein].Value)
	s.Equal(2000.0, report.Targets[nutrient.Potassium].Value)
}

func (s *ServiceTestSuite) TestCheckFoodKeepsExplicitCKDStage() {
	weight := 70.0
	report, err := s.service.CheckFood(context.Background(), CheckRequest{
		Nutrients: map[string]float64{"protein": 10},
		Profile:   nutrient.Profile{Conditions: []nutrient.Condition{{Code: nutrient.CKD, Stage: 4}}},
		WeightKg:  &weight,
		Intake:    Intake{Amounts: map[string]float64{}},
		Vitals:    []VitalReading{{Type: "egfr", Values: []float64{95}}},
	})
	s.Require().NoError(err)
	s.Equal(42.0, report.Targets[nutrient.Protein].Value)

	report, err = s.service.CheckFood(context.Background(), CheckRequest{
		Nutrients: map[string]float64{"protein": 10},
		Profile:   nutrient.Profile{Conditions: []nutrient.Condition{{Code: nutrient.CKD}}},
		WeightKg:  &weight,
		Intake:    Intake{Amounts: map[string]float64{}},
		Vitals:    []VitalReading{{Type: "egfr", Values: []float64{95}}},
	})
	s.Require().NoError(err)
	s.Equal(56.0, report.Targets[nutrient.Protein].Value)
}

func TestService_NoIntakeReader(t *testing.T) {
	svc := NewService(nil, nutrient.NewEngine(nutrient.DefaultPolicy()), nil, Options{})

	_, err := svc.DailyIntake(context.Background(), "u-1", "")
	assert.ErrorIs(t, err, common.ErrIntakeUnavailable)

	targets, err := svc.ComputeNutrientTargets(nutrient.Profile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 48.0, targets[nutrient.Protein].Value)
}
