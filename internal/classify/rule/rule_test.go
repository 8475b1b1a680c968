package rule

import (
	"os"
	"path/filepath"
	"testing"

	"fieldcat/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = []string{"z_peak", "LMASS", "F_ratio", "rf_U_V", "rf_V_J", "lage", "mips24"}

func record(values map[string]float64) catalog.Record {
	rec := catalog.Record{
		"z_peak":  0.5,
		"LMASS":   10.0,
		"F_ratio": 0.0,
		"rf_U_V":  1.0,
		"rf_V_J":  1.0,
		"lage":    9.0,
		"mips24":  0.0,
	}
	for k, v := range values {
		rec[k] = v
	}
	return rec
}

func TestCondition_Match(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		in   float64
		want bool
	}{
		{"above true", Above("x", 1), 1.5, true},
		{"above exclusive", Above("x", 1), 1, false},
		{"below true", Below("x", 1), 0.5, true},
		{"below exclusive", Below("x", 1), 1, false},
		{"between inside", Between("x", 1, 2), 1.5, true},
		{"between lower edge", Between("x", 1, 2), 1, false},
		{"between upper edge", Between("x", 1, 2), 2, false},
		{"equal", Equal("x", 3), 3, true},
		{"not equal", Equal("x", 3), 3.0001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Match(tt.in))
		})
	}
}

func TestCondition_Validate(t *testing.T) {
	one, two := 1.0, 2.0
	assert.NoError(t, Between("x", 1, 2).Validate())
	assert.Error(t, Condition{Column: "x"}.Validate())
	assert.Error(t, Condition{Column: "x", Eq: &one, Gt: &two}.Validate())
	assert.Error(t, Condition{Column: "x", Gt: &two, Lt: &one}.Validate())
	assert.Error(t, Condition{Gt: &one}.Validate())
}

func TestQuiescent(t *testing.T) {
	// 0.88*1.0+0.69 = 1.57 and 0.88*1.0+0.59 = 1.47
	assert.True(t, Quiescent(1.8, 1.0, 0.5), "above the z<1 line")
	assert.True(t, Quiescent(1.8, 1.0, 1.5), "above the z>=1 line")
	assert.False(t, Quiescent(1.0, 0.2, 0.5), "fails the U-V > 1.3 gate")
	assert.False(t, Quiescent(1.9, 1.6, 0.5), "fails the V-J < 1.5 gate")
	assert.False(t, Quiescent(1.52, 1.0, 0.5), "below the z<1 line")
	assert.True(t, Quiescent(1.52, 1.0, 1.5), "above the z>=1 line only")
	assert.True(t, Quiescent(1.52, 1.0, 1.0), "z = 1 uses the high-redshift line")
}

func TestCompile_UnknownColumn(t *testing.T) {
	_, err := Compile([]Rule{{Label: 2, Conditions: []Condition{Above("nope", 1)}}}, testColumns)

	var cfgErr *catalog.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "nope", cfgErr.Column)
	assert.Equal(t, catalog.OpClassification, cfgErr.Op)
}

func TestCompile_UnknownColumnInExpression(t *testing.T) {
	_, err := Compile([]Rule{{Label: 2, When: "missing_col > 1.0"}}, testColumns)

	var cfgErr *catalog.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "missing_col", cfgErr.Column)
}

func TestCompile_ExpressionErrors(t *testing.T) {
	_, err := Compile([]Rule{{Label: 2, When: "F_ratio > "}}, testColumns)
	assert.Error(t, err, "parse error")

	_, err = Compile([]Rule{{Label: 2, When: "F_ratio + 1.0"}}, testColumns)
	assert.Error(t, err, "non-bool expression")
}

func TestCompile_TwoFallbackOnlyRules(t *testing.T) {
	_, err := Compile([]Rule{{Label: 0}, {Label: 1}}, testColumns)

	var cfgErr *catalog.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "only one rule")
}

func TestCompile_MissingFallbackColumn(t *testing.T) {
	for _, columns := range [][]string{{"z_peak", "rf_V_J"}, {"rf_U_V", "rf_V_J"}} {
		_, err := Compile(nil, columns)

		var cfgErr *catalog.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.NotContains(t, columns, cfgErr.Column)
	}
}

func TestCompile_WithoutVJ(t *testing.T) {
	set, err := Compile(nil, []string{"z_peak", "rf_U_V"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rf_U_V", "z_peak"}, set.Columns())
}

func TestSet_Evaluate_WithoutVJ(t *testing.T) {
	set, err := Compile([]Rule{{Label: 2, Conditions: []Condition{Above("F_ratio", 20)}}}, []string{"z_peak", "rf_U_V", "F_ratio"})
	require.NoError(t, err)

	label, err := set.Evaluate(catalog.Record{"z_peak": 0.5, "rf_U_V": 1.3, "F_ratio": 10})
	require.NoError(t, err)
	assert.Equal(t, 1, label, "blue sources never need V-J")

	label, err = set.Evaluate(catalog.Record{"z_peak": 0.5, "rf_U_V": 1.8, "F_ratio": 30})
	require.NoError(t, err)
	assert.Equal(t, 2, label, "a rule label skips the fallback")

	_, err = set.Evaluate(catalog.Record{"z_peak": 0.5, "rf_U_V": 1.8, "F_ratio": 10})
	var cfgErr *catalog.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ColumnVJ, cfgErr.Column)
}

func TestCompile_DoesNotModifyInput(t *testing.T) {
	rules := []Rule{{Label: 2, When: "F_ratio >= 20.0"}, {Label: 3, Conditions: []Condition{Below("lage", 7.5)}}}
	set, err := Compile(rules, testColumns)
	require.NoError(t, err)

	assert.Equal(t, 2, rules[0].Label)
	assert.Nil(t, rules[0].program)
	assert.Equal(t, 3, set.Rules()[0].Label)
	assert.Equal(t, []int{0, 1, 2, 3}, set.Labels())
	assert.ElementsMatch(t, []string{"lage", "F_ratio", "rf_U_V", "rf_V_J", "z_peak"}, set.Columns())
}

func TestSet_Evaluate_PrecedenceByLabel(t *testing.T) {
	rec := record(map[string]float64{"F_ratio": 50, "lage": 7.0})

	ascending := []Rule{
		{Label: 2, Conditions: []Condition{Above("F_ratio", 20)}},
		{Label: 3, Conditions: []Condition{Below("lage", 7.5)}},
	}
	descending := []Rule{ascending[1], ascending[0]}

	for _, rules := range [][]Rule{ascending, descending} {
		set, err := Compile(rules, testColumns)
		require.NoError(t, err)
		label, err := set.Evaluate(rec)
		require.NoError(t, err)
		assert.Equal(t, 3, label, "higher label wins regardless of input order")
	}
}

func TestSet_Evaluate_Fallback(t *testing.T) {
	set, err := Compile([]Rule{{Label: 2, Conditions: []Condition{Above("F_ratio", 20)}}}, testColumns)
	require.NoError(t, err)

	tests := []struct {
		name string
		rec  catalog.Record
		want int
	}{
		{"quiescent low z", record(map[string]float64{"rf_U_V": 1.8, "rf_V_J": 1.0, "z_peak": 0.5}), 0},
		{"quiescent high z line only", record(map[string]float64{"rf_U_V": 1.52, "rf_V_J": 1.0, "z_peak": 1.5}), 0},
		{"fails color gate", record(map[string]float64{"rf_U_V": 1.0, "rf_V_J": 1.0}), 1},
		{"rule beats fallback", record(map[string]float64{"rf_U_V": 1.5, "rf_V_J": 1.0, "F_ratio": 30}), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, err := set.Evaluate(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestSet_Evaluate_ExplicitBackgroundRuleStillFallsBack(t *testing.T) {
	set, err := Compile([]Rule{{Label: 1, Conditions: []Condition{Above("LMASS", 9)}}}, testColumns)
	require.NoError(t, err)

	label, err := set.Evaluate(record(map[string]float64{"rf_U_V": 1.8, "rf_V_J": 1.0}))
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

func TestSet_Evaluate_FallbackOnlyRuleNeverFires(t *testing.T) {
	set, err := Compile([]Rule{{Label: 7, Name: "placeholder"}}, testColumns)
	require.NoError(t, err)

	label, err := set.Evaluate(record(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestSet_Evaluate_ConditionsAndExpression(t *testing.T) {
	set, err := Compile([]Rule{{
		Label:      3,
		Conditions: []Condition{Above("mips24", 200)},
		When:       "LMASS > z_peak * 2.16 + 9.3",
	}}, testColumns)
	require.NoError(t, err)

	label, err := set.Evaluate(record(map[string]float64{"mips24": 250, "LMASS": 11, "z_peak": 0.5}))
	require.NoError(t, err)
	assert.Equal(t, 3, label)

	label, err = set.Evaluate(record(map[string]float64{"mips24": 150, "LMASS": 11, "z_peak": 0.5}))
	require.NoError(t, err)
	assert.Equal(t, 1, label, "conditions must hold as well")

	label, err = set.Evaluate(record(map[string]float64{"mips24": 250, "LMASS": 10, "z_peak": 0.5}))
	require.NoError(t, err)
	assert.Equal(t, 1, label, "expression must hold as well")
}

func TestSet_Evaluate_MissingValue(t *testing.T) {
	set, err := Compile([]Rule{{Label: 2, Conditions: []Condition{Above("F_ratio", 20)}}}, testColumns)
	require.NoError(t, err)

	rec := record(nil)
	delete(rec, "F_ratio")
	_, err = set.Evaluate(rec)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	script := `
- label: 2
  name: agn
  when: "F_ratio >= 40.0"
- label: 3
  name: sb
  conditions:
    - {column: mips24, gt: 300}
    - {column: lage, lt: 7.5}
`
	set, err := Parse([]byte(script), testColumns)
	require.NoError(t, err)
	require.Len(t, set.Rules(), 2)
	assert.Equal(t, "sb", set.Rules()[0].Name)

	label, err := set.Evaluate(record(map[string]float64{"mips24": 400, "lage": 7.0, "F_ratio": 45}))
	require.NoError(t, err)
	assert.Equal(t, 3, label)

	label, err = set.Evaluate(record(map[string]float64{"mips24": 100, "F_ratio": 40}))
	require.NoError(t, err)
	assert.Equal(t, 2, label)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("label: [[["), testColumns)
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- label: 4\n  conditions:\n    - {column: z_peak, eq: 1}\n"), 0o644))

	rules, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.NotNil(t, rules[0].Conditions[0].Eq)
	assert.Equal(t, 1.0, *rules[0].Conditions[0].Eq)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
