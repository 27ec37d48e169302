// Package geo holds the angle, GPS time and distance primitives shared by the
// parser, the gap detector and the interpolators.
package geo

import (
	"math"
	"strconv"
)

// DMS is an angle split into degrees, minutes and seconds as written in
// RTKLIB solution files. The sign lives on Deg only; Min and Sec are
// magnitudes. Deg is a float so that "-0" survives for angles in (-1, 0).
type DMS struct {
	Deg float64
	Min float64
	Sec float64
}

// DMSToDecimal converts degrees, minutes and seconds to decimal degrees.
// The sign of d applies to the whole angle; m and s are expected non-negative.
// This is the RTKLIB .pos convention: "-122 30 0.0" reads as -122.5.
func DMSToDecimal(d, m, s float64) float64 {
	v := math.Abs(d) + m/60 + s/3600
	if math.Signbit(d) {
		return -v
	}
	return v
}

// DecimalToDMS splits decimal degrees into truncated degrees, truncated
// minutes and fractional seconds. The split is lossy at the last bit and is
// meant for writing solution files, not for normalizing angles.
func DecimalToDMS(decimal float64) DMS {
	d := math.Trunc(decimal)
	rest := math.Abs(decimal-d) * 60
	m := math.Trunc(rest)
	return DMS{
		Deg: d,
		Min: m,
		Sec: (rest - m) * 60,
	}
}

// Decimal returns the angle in decimal degrees.
func (a DMS) Decimal() float64 {
	return DMSToDecimal(a.Deg, a.Min, a.Sec)
}

// Degrees formats the degree part, keeping the sign of a negative zero.
func (a DMS) Degrees() string {
	return strconv.FormatFloat(a.Deg, 'f', 0, 64)
}
