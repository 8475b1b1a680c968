package classify

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"fieldcat/internal/catalog"
	"fieldcat/internal/classify/rule"
	"fieldcat/internal/population"
)

// Preset is a named rule set with the scheme describing its labels.
// Presets are plain data for the one rule evaluator; none of them has its own matching code.
type Preset struct {
	Name   string
	Rules  []rule.Rule
	Scheme population.Scheme
}

// Mass–redshift line above which a bright 24µm source is considered local:
// LMASS > z_peak*localSlope + localIntercept.
const (
	localIntercept = 9.3
	localSlope     = (12.0 - 9.3) / 1.25
)

// SfQt separates star-forming and quiescent sources with the UVJ fallback alone.
func SfQt() Preset {
	return Preset{Name: "sf_qt", Scheme: population.Base}
}

// SfQtAgn adds AGN: F_ratio >= fcut.
func SfQtAgn(fcut float64) Preset {
	return Preset{
		Name:   "sf_qt_agn",
		Rules:  []rule.Rule{agn(fcut)},
		Scheme: population.With(population.Population{Label: 2, Kind: population.KindAGN}),
	}
}

// SfQtAgnAhat adds AGN that also pass the AGN SED fraction cut: F_ratio >= fcut && a_hat_AGN >= ahat.
func SfQtAgnAhat(fcut, ahat float64) Preset {
	return Preset{
		Name: "sf_qt_agn_ahat",
		Rules: []rule.Rule{{
			Label: 2,
			Name:  string(population.KindAGN),
			When:  fmt.Sprintf("F_ratio >= %s && a_hat_AGN >= %s", literal(fcut), literal(ahat)),
		}},
		Scheme: population.With(population.Population{Label: 2, Kind: population.KindAGN}),
	}
}

// ThreePops separates quiescent, star-forming and AGN sources.
func ThreePops(fcut float64) Preset {
	p := SfQtAgn(fcut)
	p.Name = "3pops"
	return p
}

// ThreePopsStarburst separates quiescent, star-forming and young starburst sources: lage <= ageCut.
func ThreePopsStarburst(ageCut float64) Preset {
	return Preset{
		Name: "3pops_sb",
		Rules: []rule.Rule{{
			Label: 2,
			Name:  string(population.KindStarburst),
			When:  "lage <= " + literal(ageCut),
		}},
		Scheme: population.With(population.Population{Label: 2, Kind: population.KindStarburst}),
	}
}

// FourPops adds starbursts (lage <= ageCut) on top of AGN; a young AGN host is a starburst.
func FourPops(fcut, ageCut float64) Preset {
	return Preset{
		Name: "4pops",
		Rules: []rule.Rule{
			{Label: 3, Name: string(population.KindStarburst), When: "lage <= " + literal(ageCut)},
			agn(fcut),
		},
		Scheme: population.With(
			population.Population{Label: 2, Kind: population.KindAGN},
			population.Population{Label: 3, Kind: population.KindStarburst},
		),
	}
}

// FivePops separates starbursts (bright 24µm, no AGN), local massive sources and AGN.
func FivePops(fcut, mips24Cut float64) Preset {
	return Preset{
		Name: "5pops",
		Rules: []rule.Rule{
			{
				Label:      4,
				Name:       string(population.KindStarburst),
				Conditions: []rule.Condition{rule.Below("F_ratio", fcut)},
				When:       "mips24 >= " + literal(mips24Cut+100),
			},
			local(3, mips24Cut),
			agn(fcut),
		},
		Scheme: fivePopsScheme(),
	}
}

// FivePopsSSFR is FivePops with starbursts selected by specific star formation rate:
// 10^lssfr·1e9 >= ssfr (Gyr⁻¹), evaluated as lssfr >= log10(ssfr·1e-9).
func FivePopsSSFR(fcut, ssfr float64) Preset {
	return Preset{
		Name: "5pops_ssfr",
		Rules: []rule.Rule{
			{
				Label:      4,
				Name:       string(population.KindStarburst),
				Conditions: []rule.Condition{rule.Below("F_ratio", fcut)},
				When:       "lssfr >= " + literal(math.Log10(ssfr*1e-9)),
			},
			local(3, 250),
			agn(fcut),
		},
		Scheme: fivePopsScheme(),
	}
}

// SixPops separates local, starburst (young), dusty (short tau) and AGN sources.
// Precedence follows the labels: local (5) > starburst (4) > dusty (3) > AGN (2).
func SixPops(fcut, tauCut, ageCut float64) Preset {
	return Preset{
		Name: "6pops",
		Rules: []rule.Rule{
			local(5, 250),
			{Label: 4, Name: string(population.KindStarburst), Conditions: []rule.Condition{rule.Below("lage", ageCut)}},
			{Label: 3, Name: string(population.KindDusty), Conditions: []rule.Condition{rule.Below("ltau", tauCut)}},
			agn(fcut),
		},
		Scheme: population.With(
			population.Population{Label: 2, Kind: population.KindAGN},
			population.Population{Label: 3, Kind: population.KindDusty},
			population.Population{Label: 4, Kind: population.KindStarburst},
			population.Population{Label: 5, Kind: population.KindLocal},
		),
	}
}

func agn(fcut float64) rule.Rule {
	return rule.Rule{Label: 2, Name: string(population.KindAGN), When: "F_ratio >= " + literal(fcut)}
}

func local(label int, mips24Cut float64) rule.Rule {
	return rule.Rule{
		Label:      label,
		Name:       string(population.KindLocal),
		Conditions: []rule.Condition{rule.Above("mips24", mips24Cut)},
		When:       fmt.Sprintf("LMASS > z_peak * %s + %s", literal(localSlope), literal(localIntercept)),
	}
}

func fivePopsScheme() population.Scheme {
	return population.With(
		population.Population{Label: 2, Kind: population.KindAGN},
		population.Population{Label: 3, Kind: population.KindLocal},
		population.Population{Label: 4, Kind: population.KindStarburst},
	)
}

// literal renders v as a CEL double literal; CEL does not compare doubles with int literals.
func literal(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// presetFactory builds a preset from parameters that have been merged over the defaults.
type presetFactory struct {
	defaults map[string]float64
	build    func(p map[string]float64) Preset
}

var presets = map[string]presetFactory{
	"sf_qt": {
		defaults: map[string]float64{},
		build:    func(map[string]float64) Preset { return SfQt() },
	},
	"sf_qt_agn": {
		defaults: map[string]float64{"fcut": 20},
		build:    func(p map[string]float64) Preset { return SfQtAgn(p["fcut"]) },
	},
	"sf_qt_agn_ahat": {
		defaults: map[string]float64{"fcut": 20, "ahat": 0.5},
		build:    func(p map[string]float64) Preset { return SfQtAgnAhat(p["fcut"], p["ahat"]) },
	},
	"3pops": {
		defaults: map[string]float64{"fcut": 40},
		build:    func(p map[string]float64) Preset { return ThreePops(p["fcut"]) },
	},
	"3pops_sb": {
		defaults: map[string]float64{"age_cut": 7.4},
		build:    func(p map[string]float64) Preset { return ThreePopsStarburst(p["age_cut"]) },
	},
	"4pops": {
		defaults: map[string]float64{"fcut": 40, "age_cut": 7.5},
		build:    func(p map[string]float64) Preset { return FourPops(p["fcut"], p["age_cut"]) },
	},
	"5pops": {
		defaults: map[string]float64{"fcut": 25, "mips24_cut": 200},
		build:    func(p map[string]float64) Preset { return FivePops(p["fcut"], p["mips24_cut"]) },
	},
	"5pops_ssfr": {
		defaults: map[string]float64{"fcut": 50, "ssfr": 30},
		build:    func(p map[string]float64) Preset { return FivePopsSSFR(p["fcut"], p["ssfr"]) },
	},
	"6pops": {
		defaults: map[string]float64{"fcut": 40, "tau_cut": 7.5, "age_cut": 7.4},
		build:    func(p map[string]float64) Preset { return SixPops(p["fcut"], p["tau_cut"], p["age_cut"]) },
	},
}

// PresetNames returns the names accepted by PresetByName.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetByName builds a preset from its name and parameter overrides, e.g.
// PresetByName("sf_qt_agn", map[string]float64{"fcut": 25}). Parameter names are case-insensitive.
func PresetByName(name string, params map[string]float64) (Preset, error) {
	factory, ok := presets[strings.ToLower(name)]
	if !ok {
		return Preset{}, catalog.NewConfigurationError(catalog.OpClassification, "",
			fmt.Sprintf("unknown preset %q (known: %s)", name, strings.Join(PresetNames(), ", ")))
	}

	merged := make(map[string]float64, len(factory.defaults))
	for k, v := range factory.defaults {
		merged[k] = v
	}
	for k, v := range params {
		key := strings.ToLower(k)
		if _, known := factory.defaults[key]; !known {
			return Preset{}, catalog.NewConfigurationError(catalog.OpClassification, "",
				fmt.Sprintf("preset %q has no parameter %q", name, k))
		}
		merged[key] = v
	}
	return factory.build(merged), nil
}
