package grading

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg := ResolveConfig(nil, nil, nil, nil, nil, "")

	require.Equal(t, 100.0, cfg.MaxMarks)
	require.Equal(t, 60.0, cfg.ContentWeightage)
	require.Equal(t, 40.0, cfg.LanguageWeightage)
	require.Equal(t, 50.0, cfg.Strictness)
}

func TestResolveConfigFillsMissingWeightage(t *testing.T) {
	cfg := ResolveConfig(floatPtr(70), nil, nil, nil, nil, "")
	require.Equal(t, 70.0, cfg.ContentWeightage)
	require.Equal(t, 30.0, cfg.LanguageWeightage)

	cfg = ResolveConfig(nil, floatPtr(25), nil, nil, nil, "")
	require.Equal(t, 75.0, cfg.ContentWeightage)
	require.Equal(t, 25.0, cfg.LanguageWeightage)
}

func TestResolveConfigRescalesToHundred(t *testing.T) {
	cases := []struct {
		name     string
		content  float64
		language float64
		wantCW   float64
	}{
		{name: "undershoot", content: 30, language: 30, wantCW: 50},
		{name: "overshoot", content: 90, language: 60, wantCW: 60},
		{name: "already exact", content: 55, language: 45, wantCW: 55},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ResolveConfig(floatPtr(tc.content), floatPtr(tc.language), nil, nil, nil, "")
			require.InDelta(t, tc.wantCW, cfg.ContentWeightage, 0.01)
			require.Equal(t, 100.0, cfg.ContentWeightage+cfg.LanguageWeightage)
		})
	}
}

func TestResolveConfigWeightagesAlwaysSumToHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		var content, language *float64
		if rng.Intn(4) != 0 {
			content = floatPtr(rng.Float64()*400 - 100)
		}
		if rng.Intn(4) != 0 {
			language = floatPtr(rng.Float64()*400 - 100)
		}

		cfg := ResolveConfig(content, language, nil, nil, nil, "")
		require.Equal(t, 100.0, cfg.ContentWeightage+cfg.LanguageWeightage,
			"content=%v language=%v", content, language)
		require.GreaterOrEqual(t, cfg.ContentWeightage, 0.0)
		require.LessOrEqual(t, cfg.ContentWeightage, 100.0)
		require.GreaterOrEqual(t, cfg.LanguageWeightage, 0.0)
		require.LessOrEqual(t, cfg.LanguageWeightage, 100.0)
	}
}

func TestResolveConfigClampsOutOfRangeWeightages(t *testing.T) {
	cfg := ResolveConfig(floatPtr(-50), nil, nil, nil, nil, "")
	require.Equal(t, 0.0, cfg.ContentWeightage)
	require.Equal(t, 100.0, cfg.LanguageWeightage)

	cfg = ResolveConfig(nil, floatPtr(-10), nil, nil, nil, "")
	require.Equal(t, 100.0, cfg.ContentWeightage)
	require.Equal(t, 0.0, cfg.LanguageWeightage)

	cfg = ResolveConfig(floatPtr(150), nil, nil, nil, nil, "")
	require.Equal(t, 100.0, cfg.ContentWeightage)
	require.Equal(t, 0.0, cfg.LanguageWeightage)

	cfg = ResolveConfig(floatPtr(-50), floatPtr(150), nil, nil, nil, "")
	require.Equal(t, 0.0, cfg.ContentWeightage)
	require.Equal(t, 100.0, cfg.LanguageWeightage)

	cfg = ResolveConfig(floatPtr(-5), floatPtr(-5), nil, nil, nil, "")
	require.Equal(t, 60.0, cfg.ContentWeightage)
	require.Equal(t, 40.0, cfg.LanguageWeightage)
}

func TestResolveConfigRejectsNonFiniteWeightages(t *testing.T) {
	cfg := ResolveConfig(floatPtr(math.NaN()), floatPtr(math.Inf(1)), nil, nil, nil, "")
	require.Equal(t, 60.0, cfg.ContentWeightage)
	require.Equal(t, 40.0, cfg.LanguageWeightage)
}

func TestResolveConfigZeroSumFallsBackToDefaults(t *testing.T) {
	cfg := ResolveConfig(floatPtr(0), floatPtr(0), nil, nil, nil, "")
	require.Equal(t, 60.0, cfg.ContentWeightage)
	require.Equal(t, 40.0, cfg.LanguageWeightage)
}

func TestResolveConfigMaxMarksPrecedence(t *testing.T) {
	cfg := ResolveConfig(nil, nil, floatPtr(80), floatPtr(50), nil, "")
	require.Equal(t, 80.0, cfg.MaxMarks)

	cfg = ResolveConfig(nil, nil, nil, floatPtr(50), nil, "")
	require.Equal(t, 50.0, cfg.MaxMarks)

	cfg = ResolveConfig(nil, nil, floatPtr(0), floatPtr(-10), nil, "")
	require.Equal(t, 100.0, cfg.MaxMarks)
}

func TestResolveConfigClampsStrictness(t *testing.T) {
	require.Equal(t, 100.0, ResolveConfig(nil, nil, nil, nil, floatPtr(180), "").Strictness)
	require.Equal(t, 0.0, ResolveConfig(nil, nil, nil, nil, floatPtr(-5), "").Strictness)
	require.Equal(t, 35.0, ResolveConfig(nil, nil, nil, nil, floatPtr(35), "").Strictness)
}

func TestBudgetsSplitMaxMarks(t *testing.T) {
	cfg := ResolveConfig(floatPtr(60), floatPtr(40), floatPtr(50), nil, nil, "")

	require.InDelta(t, 30.0, cfg.ContentBudget(), 0.001)
	require.InDelta(t, 20.0, cfg.LanguageBudget(), 0.001)
	require.InDelta(t, cfg.MaxMarks, cfg.ContentBudget()+cfg.LanguageBudget(), 0.001)
}
