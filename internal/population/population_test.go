package population

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_Suffix(t *testing.T) {
	assert.Equal(t, "_agn", KindAGN.Suffix())
	assert.Equal(t, "", Kind("").Suffix())
}

func TestScheme_Lookup(t *testing.T) {
	s := With(Population{Label: 3, Kind: KindStarburst}, Population{Label: 2, Kind: KindAGN})

	kind, ok := s.Kind(3)
	assert.True(t, ok)
	assert.Equal(t, KindStarburst, kind)

	_, ok = s.Kind(9)
	assert.False(t, ok)

	p, ok := s.Find(KindQuiescent)
	assert.True(t, ok)
	assert.Equal(t, Quiescent, p.Label)

	assert.Equal(t, []Label{0, 1, 2, 3}, s.Labels())
	assert.Len(t, Base, 2, "With must not grow the shared base scheme")
}

func TestScheme_Validate(t *testing.T) {
	assert.NoError(t, With(Population{Label: 2, Kind: KindAGN}).Validate())
	assert.Error(t, With(Population{Label: 1, Kind: KindAGN}).Validate())
	assert.Error(t, With(Population{Label: 2, Kind: KindStarForming}).Validate())
	assert.Error(t, With(Population{Label: 2, Kind: "a_b"}).Validate())
	assert.Error(t, With(Population{Label: 2, Kind: ""}).Validate())
	assert.Error(t, With(Population{Label: 2, Kind: "2x"}).Validate())
	assert.Error(t, With(Population{Label: 2, Kind: "n1"}).Validate())
	assert.Error(t, With(Population{Label: 2, Kind: "n0p5"}).Validate())
	assert.NoError(t, With(Population{Label: 2, Kind: "n1x"}).Validate())
}
