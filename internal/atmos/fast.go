package atmos

import "math"

// Poly is a cubic polynomial in AOT, p0 + p1*x + p2*x^2 + p3*x^3, the shape
// produced by the coefficient cache's 3rd-order fits (spec.md section 4.2).
type Poly [4]float64

// Eval evaluates the polynomial at x using Horner's method.
func (p Poly) Eval(x float64) float64 {
	return p[0] + x*(p[1]+x*(p[2]+x*p[3]))
}

// FastParams bundles the per-band, scene-constant state atmcorlamb2_new
// needs to evaluate a pixel without touching the LUT: the AOT-independent
// other-gas transmission, the three cubic fits, the extinction-ratio
// reference used to build them, and the AOT clamp ceiling (aot550nm[iaMax]).
type FastParams struct {
	Tgo         float64
	RoatmPoly   Poly
	TtatmgPoly  Poly
	SatmPoly    Poly
	NormextP0A3 float64
	AOTMax      float64 // aot550nm[iaMax], the clamp ceiling for polynomial evaluation
	RefEpsilon  float64 // epsilon the coefficient cache was built at (HIGH_EPS)
}

// SceneCoefficients is the scalar form of FastParams's three polynomials,
// evaluated once at a fixed (AOT, eps) pair rather than kept as functions of
// AOT. spec.md section 4.7 calls these (btgo, broatm, bttatmg, bsatm): the
// scene-center or scene-nominal coefficients the final correction stage
// reconstructs the pre-correction TOA from.
type SceneCoefficients struct {
	Tgo    float64
	Roatm  float64
	Ttatmg float64
	Satm   float64
}

// EvaluateCoefficients clamps raot550nm to FastParams' AOT ceiling and
// evaluates the three polynomial fits and the extinction ratio at eps,
// producing the scalar coefficients a single TOA<->SR inversion needs.
func EvaluateCoefficients(p FastParams, raot550nm, eps float64) SceneCoefficients {
	aot := raot550nm
	if aot > p.AOTMax {
		aot = p.AOTMax
	}
	if aot < 0 {
		aot = 0
	}

	roatm := p.RoatmPoly.Eval(aot)
	ttatmg := p.TtatmgPoly.Eval(aot)
	satm := p.SatmPoly.Eval(aot)

	refEps := p.RefEpsilon
	if refEps == 0 {
		refEps = BaselineEpsilon
	}
	extRatio := math.Pow(p.NormextP0A3, eps/refEps)

	return SceneCoefficients{
		Tgo:    p.Tgo,
		Roatm:  roatm * extRatio,
		Ttatmg: ttatmg,
		Satm:   satm * extRatio,
	}
}

// Invert applies the closed-form Lambertian inversion to a TOA reflectance,
// the same formula as Result.Invert but against the fast-path coefficients.
func (c SceneCoefficients) Invert(rhoTOA float64) float64 {
	rp := rhoTOA/c.Tgo - c.Roatm
	return rp / (c.Ttatmg + c.Satm*rp)
}

// ReconstructTOA is the algebraic inverse of Invert: given a surface
// reflectance that was produced by these coefficients, it recovers the TOA
// reflectance that produced it (spec.md section 4.7 step 1).
func (c SceneCoefficients) ReconstructTOA(rsurf float64) float64 {
	rp := rsurf * c.Ttatmg / (1 - c.Satm*rsurf)
	return (rp + c.Roatm) * c.Tgo
}

// Evaluate implements atmcorlamb2_new: the per-pixel fast path. It evaluates
// the three cubic fits at a clamped AOT, scales rho_atm and s_albedo for the
// given Ångström exponent via the normext-based extinction ratio, and
// applies the Lambertian inversion to rhoTOA.
func Evaluate(p FastParams, raot550nm, eps, rhoTOA float64) float64 {
	return EvaluateCoefficients(p, raot550nm, eps).Invert(rhoTOA)
}
