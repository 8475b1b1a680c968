package rule

// Columns read by the UVJ two-color fallback.
const (
	ColumnUV       = "rf_U_V"
	ColumnVJ       = "rf_V_J"
	ColumnRedshift = "z_peak"
)

// colorGate is the U−V color a source must exceed before V−J is looked at.
const colorGate = 1.3

// FallbackColumns lists the columns every rule set reads through the two-color fallback.
// ColumnVJ is not among them: it is only read for sources redder than the U−V gate.
var FallbackColumns = []string{ColumnUV, ColumnRedshift}

// PassesColorGate reports whether uv is red enough for the V−J cut to matter.
func PassesColorGate(uv float64) bool {
	return uv > colorGate
}

// Quiescent reports whether a source sits in the quiescent region of the rest-frame U−V vs V−J
// diagram. The diagonal boundary drops by 0.1 mag at z = 1.
func Quiescent(uv, vj, z float64) bool {
	if !PassesColorGate(uv) || vj >= 1.5 {
		return false
	}
	if z < 1 {
		return uv > 0.88*vj+0.69
	}
	return uv > 0.88*vj+0.59
}
