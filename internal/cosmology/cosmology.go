// Package cosmology computes cosmic ages for a ΛCDM universe without radiation.
package cosmology

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// hubbleTimeGyr converts 1/H0 with H0 in km/s/Mpc to Gyr.
const hubbleTimeGyr = 977.79222168

const (
	quadraturePoints = 64
	bisectionSteps   = 80
	tolerance        = 1e-12
)

// LambdaCDM is a matter + dark energy cosmology, curved when Om0+Ode0 != 1.
type LambdaCDM struct {
	H0   float64
	Om0  float64
	Ode0 float64
	Ok0  float64

	age0 float64
}

// New creates a ΛCDM cosmology. H0 is in km/s/Mpc.
func New(h0, om0, ode0 float64) (*LambdaCDM, error) {
	if !(h0 > 0) || math.IsInf(h0, 0) {
		return nil, fmt.Errorf("H0 must be positive, got %g", h0)
	}
	if !(om0 > 0) || !(ode0 >= 0) {
		return nil, fmt.Errorf("density parameters must be non-negative with Om0 > 0, got Om0=%g Ode0=%g", om0, ode0)
	}

	c := &LambdaCDM{H0: h0, Om0: om0, Ode0: ode0, Ok0: 1 - om0 - ode0}
	for i := 1; i <= 1000; i++ {
		if a := float64(i) / 1000; c.e2(a) <= 0 {
			return nil, fmt.Errorf("Om0=%g Ode0=%g has no expansion history up to today", om0, ode0)
		}
	}
	c.age0 = c.ageAt(1)
	return c, nil
}

// Planck15 returns the Planck 2015 cosmology (H0=67.74, Om0=0.3075, flat).
func Planck15() *LambdaCDM {
	c, err := New(67.74, 0.3075, 1-0.3075)
	if err != nil {
		panic(err)
	}
	return c
}

// e2 is (H(a)/H0)^2 * a^3.
func (c *LambdaCDM) e2(a float64) float64 {
	return c.Om0 + c.Ok0*a + c.Ode0*a*a*a
}

// ageAt integrates the age of the universe (Gyr) at scale factor a. The substitution a = u^2
// removes the square root singularity at the origin.
func (c *LambdaCDM) ageAt(a float64) float64 {
	integrand := func(u float64) float64 {
		return 2 * u * u / math.Sqrt(c.e2(u*u))
	}
	return hubbleTimeGyr / c.H0 * quad.Fixed(integrand, 0, math.Sqrt(a), quadraturePoints, nil, 0)
}

// Age returns the age of the universe at redshift z, in Gyr.
func (c *LambdaCDM) Age(z float64) (float64, error) {
	if !(z > -1) || math.IsInf(z, 0) {
		return 0, fmt.Errorf("redshift must be finite and greater than -1, got %g", z)
	}
	return c.ageAt(1 / (1 + z)), nil
}

// AgeOfUniverse returns the age of the universe today, in Gyr.
func (c *LambdaCDM) AgeOfUniverse() float64 {
	return c.age0
}

// RedshiftAtLookbackTime returns the redshift whose light was emitted t Gyr ago.
func (c *LambdaCDM) RedshiftAtLookbackTime(t float64) (float64, error) {
	if !(t >= 0) || t >= c.age0 {
		return 0, fmt.Errorf("lookback time %g Gyr is outside [0, %g)", t, c.age0)
	}
	if t == 0 {
		return 0, nil
	}

	target := c.age0 - t
	lo, hi := 0.0, 1.0
	for step := 0; step < bisectionSteps; step++ {
		mid := (lo + hi) / 2
		if c.ageAt(mid) < target {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < tolerance {
			break
		}
	}
	return 1/((lo+hi)/2) - 1, nil
}
