package rating

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/core/vital"
	"nutrition-engine/internal/pkg/common"
)

// IntakeReader 每日攝取彙總的來源，只讀
type IntakeReader interface {
	DailyIntake(ctx context.Context, userID string, day time.Time) (nutrient.Amounts, error)
}

// Options 批次解析的上限
type Options struct {
	BatchWorkers int
	BatchMaxSize int
}

// Service 對外提供食物解析、營養目標、警示與生理數值分級
type Service struct {
	resolver  *food.Resolver
	nutrients *nutrient.Engine
	intake    IntakeReader
	opts      Options
	now       func() time.Time
}

// NewService 創建服務；intake 可為 nil，此時只能使用呼叫端提供的攝取量
func NewService(resolver *food.Resolver, nutrients *nutrient.Engine, intake IntakeReader, opts Options) *Service {
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 5
	}
	if opts.BatchMaxSize <= 0 {
		opts.BatchMaxSize = 50
	}
	return &Service{
		resolver:  resolver,
		nutrients: nutrients,
		intake:    intake,
		opts:      opts,
		now:       time.Now,
	}
}

// ResolveFood 解析單一食物名稱；不會失敗，找不到時回傳 estimated 結果
func (s *Service) ResolveFood(ctx context.Context, req food.Request) food.MatchResult {
	return s.resolver.Resolve(ctx, req)
}

// ResolveBatch 批次解析，結果順序與輸入相同
func (s *Service) ResolveBatch(ctx context.Context, reqs []food.Request) ([]food.MatchResult, error) {
	if len(reqs) == 0 {
		return nil, common.NewFieldError("items", "at least one item is required")
	}
	if len(reqs) > s.opts.BatchMaxSize {
		return nil, common.ErrBatchTooLarge
	}
	return s.resolver.ResolveBatch(ctx, reqs, s.opts.BatchWorkers), nil
}

// ComputeNutrientTargets 依健康狀況計算每日目標
func (s *Service) ComputeNutrientTargets(profile nutrient.Profile, weightKg *float64) (nutrient.TargetSet, error) {
	return s.nutrients.Targets(profile, weightKg)
}

// EvaluateNutrientWarnings 純函式，不修改輸入
func (s *Service) EvaluateNutrientWarnings(targets nutrient.TargetSet, amounts nutrient.Amounts, vitals ...vital.Status) []nutrient.Warning {
	return s.nutrients.Evaluate(targets, amounts, vitals...)
}

// ClassifyVital 生理數值分級
func (s *Service) ClassifyVital(t vital.Type, values []float64, context vital.Context) (vital.Status, error) {
	return vital.Classify(t, values, context)
}

// VitalReading 未解析的生理數值輸入
type VitalReading struct {
	Type    string    `json:"type"`
	Values  []float64 `json:"values"`
	Context string    `json:"context,omitempty"`
}

// ClassifyReading 解析類型與情境字串後分級
func (s *Service) ClassifyReading(r VitalReading) (vital.Status, error) {
	t, err := vital.ParseType(r.Type)
	if err != nil {
		return vital.Status{}, err
	}
	c, err := vital.ParseContext(r.Context)
	if err != nil {
		return vital.Status{}, err
	}
	return s.ClassifyVital(t, r.Values, c)
}

func (s *Service) classifyAll(readings []VitalReading) ([]vital.Status, error) {
	out := make([]vital.Status, 0, len(readings))
	for _, r := range readings {
		st, err := s.ClassifyReading(r)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// stageFromVitals 未指定分期且非透析的 CKD 以最後一筆 eGFR 推算分期；回傳副本，不修改輸入
func stageFromVitals(p nutrient.Profile, vitals []vital.Status) nutrient.Profile {
	stage, egfr := 0, 0.0
	for _, v := range vitals {
		if v.Type != vital.EGFR || len(v.Values) == 0 {
			continue
		}
		if st, err := vital.CKDStageFromEGFR(v.Values[0]); err == nil {
			stage, egfr = st, v.Values[0]
		}
	}
	if stage == 0 {
		return p
	}

	conditions := make([]nutrient.Condition, len(p.Conditions))
	copy(conditions, p.Conditions)
	for i, c := range conditions {
		if c.Code == nutrient.CKD && c.Stage == 0 && !c.Dialysis {
			conditions[i].Stage = stage
			common.LogDebug("CKD stage inferred from eGFR", zap.Float64("egfr", egfr), zap.Int("stage", stage))
		}
	}
	p.Conditions = conditions
	return p
}

// DailyIntake 讀取使用者當日的攝取彙總，date 為空代表今天
func (s *Service) DailyIntake(ctx context.Context, userID, date string) (nutrient.Amounts, error) {
	if s.intake == nil {
		return nil, common.ErrIntakeUnavailable
	}
	day, err := parseDay(date, s.now())
	if err != nil {
		return nil, err
	}
	return s.intake.DailyIntake(ctx, userID, day)
}

// Intake 攝取量來源：直接提供，或以 UserID + Date 讀取彙總
type Intake struct {
	Amounts map[string]float64 `json:"amounts,omitempty"`
	UserID  string             `json:"user_id,omitempty"`
	Date    string             `json:"date,omitempty"`
}

func (s *Service) baseline(ctx context.Context, in Intake) (nutrient.Amounts, error) {
	if in.Amounts != nil {
		return nutrient.ParseAmounts(in.Amounts)
	}
	if in.UserID == "" {
		return nil, nil
	}
	return s.DailyIntake(ctx, in.UserID, in.Date)
}

// WarningsRequest 對當日攝取量評估警示
type WarningsRequest struct {
	Profile  nutrient.Profile `json:"profile"`
	WeightKg *float64         `json:"weight_kg,omitempty"`
	Intake   Intake           `json:"intake"`
	Vitals   []VitalReading   `json:"vitals,omitempty"`
}

// WarningsReport 警示結果與計算時使用的數值
type WarningsReport struct {
	Targets  nutrient.TargetSet `json:"targets"`
	Intake   nutrient.Amounts   `json:"intake"`
	Vitals   []vital.Status     `json:"vitals,omitempty"`
	Warnings []nutrient.Warning `json:"warnings"`
}

// Warnings 計算目標、取得攝取量後評估
func (s *Service) Warnings(ctx context.Context, req WarningsRequest) (*WarningsReport, error) {
	vitals, err := s.classifyAll(req.Vitals)
	if err != nil {
		return nil, err
	}
	targets, err := s.ComputeNutrientTargets(stageFromVitals(req.Profile, vitals), req.WeightKg)
	if err != nil {
		return nil, err
	}
	amounts, err := s.baseline(ctx, req.Intake)
	if err != nil {
		return nil, err
	}
	return &WarningsReport{
		Targets:  targets,
		Intake:   amounts,
		Vitals:   vitals,
		Warnings: s.EvaluateNutrientWarnings(targets, amounts, vitals...),
	}, nil
}

// CheckRequest 記錄前檢查：單一食物加上當日已攝取量
type CheckRequest struct {
	Food      *food.Request      `json:"food,omitempty"`
	Nutrients map[string]float64 `json:"nutrients,omitempty"`
	Servings  *float64           `json:"servings,omitempty"`
	Profile   nutrient.Profile   `json:"profile"`
	WeightKg  *float64           `json:"weight_kg,omitempty"`
	Intake    Intake             `json:"intake"`
	Vitals    []VitalReading     `json:"vitals,omitempty"`
}

// CheckReport 檢查結果；Projected = Baseline + Nutrients
type CheckReport struct {
	Match     *food.MatchResult  `json:"match,omitempty"`
	Nutrients nutrient.Amounts   `json:"nutrients"`
	Baseline  nutrient.Amounts   `json:"baseline,omitempty"`
	Projected nutrient.Amounts   `json:"projected"`
	Targets   nutrient.TargetSet `json:"targets"`
	Warnings  []nutrient.Warning `json:"warnings"`
}

// CheckFood 解析食物（或使用原始營養素）並依份數換算，與當日攝取量合計後評估
func (s *Service) CheckFood(ctx context.Context, req CheckRequest) (*CheckReport, error) {
	if (req.Food == nil) == (req.Nutrients == nil) {
		return nil, common.NewFieldError("food", "exactly one of food or nutrients is required")
	}

	servings := 1.0
	if req.Servings != nil {
		if *req.Servings <= 0 {
			return nil, common.NewFieldError("servings", "must be greater than zero, got %v", *req.Servings)
		}
		servings = *req.Servings
	}

	vitals, err := s.classifyAll(req.Vitals)
	if err != nil {
		return nil, err
	}
	targets, err := s.ComputeNutrientTargets(stageFromVitals(req.Profile, vitals), req.WeightKg)
	if err != nil {
		return nil, err
	}

	report := &CheckReport{Targets: targets}
	var perServing nutrient.Amounts
	if req.Food != nil {
		if req.Food.Estimate != nil {
			for code, v := range req.Food.Estimate {
				if _, ok := nutrient.Lookup(code); !ok || v < 0 {
					return nil, common.NewFieldError("food.estimate", "invalid amount for %q", code)
				}
			}
		}
		match := s.ResolveFood(ctx, *req.Food)
		report.Match = &match
		perServing = match.Nutrients()
	} else {
		perServing, err = nutrient.ParseAmounts(req.Nutrients)
		if err != nil {
			return nil, err
		}
	}

	report.Nutrients, err = perServing.Scale(servings)
	if err != nil {
		return nil, err
	}
	report.Baseline, err = s.baseline(ctx, req.Intake)
	if err != nil {
		return nil, err
	}
	report.Projected = report.Baseline.Plus(report.Nutrients)
	report.Warnings = s.EvaluateNutrientWarnings(targets, report.Projected, vitals...)

	if report.Match != nil && report.Match.RequiresVerification {
		common.LogDebug("Food check used an unverified match",
			zap.String("name", report.Match.Name),
			zap.String("source", string(report.Match.Source)),
			zap.Float64("confidence", report.Match.Confidence))
	}
	return report, nil
}

func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, common.NewFieldError("date", "must be formatted as yyyy-mm-dd")
	}
	return day, nil
}
