package nutrient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-engine/internal/core/vital"
)

func defaultTargets(t *testing.T, p Profile) (*Engine, TargetSet) {
	t.Helper()
	e := NewEngine(DefaultPolicy())
	set, err := e.Targets(p, nil)
	require.NoError(t, err)
	return e, set
}

func TestEvaluate_CeilingBands(t *testing.T) {
	e, set := defaultTargets(t, Profile{})

	tests := []struct {
		sodium float64
		want   Severity
	}{
		{1000, SeveritySafe},
		{1900, SeverityCaution},
		{2300, SeverityCaution}, // 100%
		{2400, SeverityLimit},
	}
	for _, tt := range tests {
		ws := e.Evaluate(set, Amounts{Sodium: tt.sodium})
		require.Len(t, ws, 1)
		assert.Equal(t, tt.want, ws[0].Severity, "sodium %v", tt.sodium)
	}
}

func TestEvaluate_GoalBandsInverted(t *testing.T) {
	e, set := defaultTargets(t, Profile{})

	tests := []struct {
		fiber float64
		want  Severity
	}{
		{5, SeverityLimit},      // 20%
		{12.5, SeverityCaution}, // 50%
		{19, SeverityCaution},   // 76%
		{21, SeveritySafe},
		{40, SeveritySafe},
	}
	for _, tt := range tests {
		ws := e.Evaluate(set, Amounts{Fiber: tt.fiber})
		require.Len(t, ws, 1)
		assert.Equal(t, tt.want, ws[0].Severity, "fiber %v", tt.fiber)
	}
}

func TestEvaluate_OrderedWorstFirst(t *testing.T) {
	e, set := defaultTargets(t, Profile{Conditions: []Condition{{Code: Hypertension}}})

	ws := e.Evaluate(set, Amounts{
		Sodium:       3000, // 200%
		Sugar:        60,   // 120%
		Fiber:        5,    // 20%，偏差 80
		SaturatedFat: 11,   // 84.6%
		Cholesterol:  30,   // 10%
	})
	require.Len(t, ws, 5)

	assert.Equal(t, Sodium, ws[0].Nutrient)
	assert.Equal(t, Fiber, ws[1].Nutrient)
	assert.Equal(t, Sugar, ws[2].Nutrient)
	assert.Equal(t, SaturatedFat, ws[3].Nutrient)
	assert.Equal(t, SeverityCaution, ws[3].Severity)
	assert.Equal(t, Cholesterol, ws[4].Nutrient)
	assert.Equal(t, SeveritySafe, ws[4].Severity)

	assert.Equal(t, 200.0, ws[0].Percent)
	assert.Contains(t, ws[0].Message, "1500 mg")
}

func TestEvaluate_SkipsMissingNutrients(t *testing.T) {
	e, set := defaultTargets(t, Profile{})

	ws := e.Evaluate(set, Amounts{Sodium: 100, "iron": 12})
	require.Len(t, ws, 1)
	assert.Equal(t, Sodium, ws[0].Nutrient)

	assert.Empty(t, e.Evaluate(set, nil))
}

func TestEvaluate_DoesNotMutateIntake(t *testing.T) {
	e, set := defaultTargets(t, Profile{})
	intake := Amounts{Sodium: 3000, Sugar: 10}
	before := intake.Clone()

	_ = e.Evaluate(set, intake)
	assert.Equal(t, before, intake)
}

func TestEvaluate_VitalNotes(t *testing.T) {
	e, set := defaultTargets(t, Profile{Conditions: []Condition{{Code: Hypertension}}})

	bp, err := vital.Classify(vital.BloodPressure, []float64{150, 95}, "")
	require.NoError(t, err)
	ldl, err := vital.Classify(vital.LDL, []float64{90}, "")
	require.NoError(t, err)

	ws := e.Evaluate(set, Amounts{Sodium: 1600, Cholesterol: 290, Sugar: 5}, bp, ldl)
	require.Len(t, ws, 3)

	byCode := map[Code]Warning{}
	for _, w := range ws {
		byCode[w.Nutrient] = w
	}
	assert.Equal(t, "recent blood pressure high (150/95 mmHg)", byCode[Sodium].VitalNote)
	// LDL 正常，不附註
	assert.Empty(t, byCode[Cholesterol].VitalNote)
	assert.Empty(t, byCode[Sugar].VitalNote)
}

func TestEvaluate_SharedPolicyBands(t *testing.T) {
	policy := DefaultPolicy()
	policy.Bands.CautionAt = 60
	e := NewEngine(policy)
	set, err := e.Targets(Profile{}, nil)
	require.NoError(t, err)

	ws := e.Evaluate(set, Amounts{Sodium: 1500})
	require.Len(t, ws, 1)
	assert.Equal(t, SeverityCaution, ws[0].Severity)
}
