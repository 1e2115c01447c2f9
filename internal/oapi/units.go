package oapi

import (
	"fmt"
	"math"
	"strings"
)

// Units is one of the external application's unit systems: a force, length
// and temperature triple. Values follow the application's own 1-based
// enumeration, so a Units value is passed to SetPresentUnits unchanged.
type Units int

const (
	LbInF Units = iota + 1
	LbFtF
	KipInF
	KipFtF
	KNmmC
	KNmC
	KgfMmC
	KgfMC
	NMmC
	NMC
	TonMmC
	TonMC
	KNCmC
	KgfCmC
	NCmC
	TonCmC
)

// CanonicalUnits is the fixed metric basis table data is read in.
const CanonicalUnits = KNmC

var unitNames = [...]string{
	LbInF:  "lb_in_F",
	LbFtF:  "lb_ft_F",
	KipInF: "kip_in_F",
	KipFtF: "kip_ft_F",
	KNmmC:  "kN_mm_C",
	KNmC:   "kN_m_C",
	KgfMmC: "kgf_mm_C",
	KgfMC:  "kgf_m_C",
	NMmC:   "N_mm_C",
	NMC:    "N_m_C",
	TonMmC: "Ton_mm_C",
	TonMC:  "Ton_m_C",
	KNCmC:  "kN_cm_C",
	KgfCmC: "kgf_cm_C",
	NCmC:   "N_cm_C",
	TonCmC: "Ton_cm_C",
}

// AllUnits returns every unit system in enumeration order.
func AllUnits() []Units {
	all := make([]Units, 0, len(unitNames)-1)
	for u := LbInF; u <= TonCmC; u++ {
		all = append(all, u)
	}
	return all
}

// Valid reports whether u is a known unit system.
func (u Units) Valid() bool {
	return u >= LbInF && u <= TonCmC
}

func (u Units) String() string {
	if !u.Valid() {
		return fmt.Sprintf("Units(%d)", int(u))
	}
	return unitNames[u]
}

// ParseUnits resolves a unit system name such as "kN_m_C".
// Matching is case-insensitive.
func ParseUnits(name string) (Units, error) {
	name = strings.TrimSpace(name)
	for u := LbInF; u <= TonCmC; u++ {
		if strings.EqualFold(unitNames[u], name) {
			return u, nil
		}
	}
	return 0, fmt.Errorf("unknown unit system %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (u Units) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("unknown unit system %d", int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Units) UnmarshalText(text []byte) error {
	parsed, err := ParseUnits(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ForceInKN is the size of one force unit of u, in kN.
func (u Units) ForceInKN() float64 {
	switch u {
	case LbInF, LbFtF:
		return 0.0044482216152605
	case KipInF, KipFtF:
		return 4.4482216152605
	case KNmmC, KNmC, KNCmC:
		return 1
	case KgfMmC, KgfMC, KgfCmC:
		return 0.00980665
	case NMmC, NMC, NCmC:
		return 0.001
	case TonMmC, TonMC, TonCmC:
		return 9.80665
	}
	return math.NaN()
}

// LengthInM is the size of one length unit of u, in metres.
func (u Units) LengthInM() float64 {
	switch u {
	case LbInF, KipInF:
		return 0.0254
	case LbFtF, KipFtF:
		return 0.3048
	case KNmmC, KgfMmC, NMmC, TonMmC:
		return 0.001
	case KNmC, KgfMC, NMC, TonMC:
		return 1
	case KNCmC, KgfCmC, NCmC, TonCmC:
		return 0.01
	}
	return math.NaN()
}

// Dimension gives the force and length exponents of a quantity, e.g.
// stress is {Force: 1, Length: -2}.
type Dimension struct {
	Force  int
	Length int
}

// Dimensionless reports whether d carries no force or length.
func (d Dimension) Dimensionless() bool {
	return d.Force == 0 && d.Length == 0
}

// scale is the size of one unit of d in u, expressed in kN/m.
func (d Dimension) scale(u Units) float64 {
	return math.Pow(u.ForceInKN(), float64(d.Force)) * math.Pow(u.LengthInM(), float64(d.Length))
}

// Convert re-expresses value, measured in from, in the units of to.
func (d Dimension) Convert(value float64, from, to Units) float64 {
	if d.Dimensionless() || from == to {
		return value
	}
	return value * d.scale(from) / d.scale(to)
}
