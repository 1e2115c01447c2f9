package oapi

import (
	"math"
	"testing"
)

func TestUnits_EnumerationOrder(t *testing.T) {
	all := AllUnits()
	if len(all) != 16 {
		t.Fatalf("len(AllUnits()) = %d, want 16", len(all))
	}
	if all[0] != LbInF || int(LbInF) != 1 {
		t.Errorf("first unit system = %v (%d), want lb_in_F (1)", all[0], int(all[0]))
	}
	if int(KNmC) != 6 {
		t.Errorf("kN_m_C = %d, want 6", int(KNmC))
	}
	if all[15] != TonCmC {
		t.Errorf("last unit system = %v, want Ton_cm_C", all[15])
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		input   string
		want    Units
		wantErr bool
	}{
		{input: "kN_m_C", want: KNmC},
		{input: "kn_M_c", want: KNmC},
		{input: " lb_in_F ", want: LbInF},
		{input: "Ton_cm_C", want: TonCmC},
		{input: "furlong_fortnight", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUnits(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUnits(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseUnits(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnits_StringRoundTrip(t *testing.T) {
	for _, u := range AllUnits() {
		got, err := ParseUnits(u.String())
		if err != nil || got != u {
			t.Errorf("ParseUnits(%q) = %v, %v", u.String(), got, err)
		}
	}
	if got := Units(0).String(); got != "Units(0)" {
		t.Errorf("Units(0).String() = %q", got)
	}
}

func TestDimension_Convert(t *testing.T) {
	tests := []struct {
		name     string
		dim      Dimension
		value    float64
		from, to Units
		want     float64
	}{
		{"metres to millimetres", Dimension{Length: 1}, 3.5, KNmC, KNmmC, 3500},
		{"metres to inches", Dimension{Length: 1}, 0.0254, KNmC, LbInF, 1},
		{"kN to kip", Dimension{Force: 1}, 4.4482216152605, KNmC, KipFtF, 1},
		{"stress kN/m2 to N/mm2", Dimension{Force: 1, Length: -2}, 1000, KNmC, NMmC, 1},
		{"dimensionless untouched", Dimension{}, 0.3, KNmC, LbInF, 0.3},
		{"same units untouched", Dimension{Length: 1}, 7, KipInF, KipInF, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.dim.Convert(tt.value, tt.from, tt.to)
			if math.Abs(got-tt.want) > 1e-9*math.Max(1, math.Abs(tt.want)) {
				t.Errorf("Convert() = %v, want %v", got, tt.want)
			}
		})
	}
}
