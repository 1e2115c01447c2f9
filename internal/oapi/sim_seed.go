package oapi

var (
	force  = Dimension{Force: 1}
	length = Dimension{Length: 1}
	stress = Dimension{Force: 1, Length: -2}
	weight = Dimension{Force: 1, Length: -3}
	line   = Dimension{Force: 1, Length: -1}
)

// SeedModel returns a small portal-frame model used by the simulator
// backend. Values are in kN_m_C.
func SeedModel() []SimTable {
	return []SimTable{
		{
			Key:        "Joint Coordinates",
			Name:       "Joint Coordinates",
			ImportType: ImportUnlocked,
			Fields: []SimField{
				{Key: "Joint", Name: "Joint", Description: "Joint label", Importable: true},
				{Key: "CoordSys", Name: "CoordSys", Description: "Coordinate system name", Importable: true},
				{Key: "CoordType", Name: "CoordType", Description: "Coordinate type", Importable: true},
				{Key: "XorR", Name: "XorR", Description: "X or radial coordinate", Units: "m", Importable: true, Dim: length},
				{Key: "Y", Name: "Y", Description: "Y coordinate", Units: "m", Importable: true, Dim: length},
				{Key: "Z", Name: "Z", Description: "Z coordinate", Units: "m", Importable: true, Dim: length},
			},
			Records: [][]string{
				{"1", "GLOBAL", "Cartesian", "0", "0", "0"},
				{"2", "GLOBAL", "Cartesian", "0", "0", "3.5"},
				{"3", "GLOBAL", "Cartesian", "6", "0", "3.5"},
				{"4", "GLOBAL", "Cartesian", "6", "0", "0"},
			},
		},
		{
			Key:        "Load Pattern Definitions",
			Name:       "Load Pattern Definitions",
			ImportType: ImportLockedOrUnlocked,
			Fields: []SimField{
				{Key: "LoadPat", Name: "LoadPat", Description: "Load pattern name", Importable: true},
				{Key: "DesignType", Name: "DesignType", Description: "Design type", Importable: true},
				{Key: "SelfWtMult", Name: "SelfWtMult", Description: "Self weight multiplier", Importable: true},
			},
			Records: [][]string{
				{"DEAD", "Dead", "1"},
				{"LIVE", "Live", "0"},
			},
		},
		{
			Key:        "Material Properties 02 - Basic Mechanical Properties",
			Name:       "Material Properties 02 - Basic Mechanical Properties",
			ImportType: ImportUnlocked,
			Fields: []SimField{
				{Key: "Material", Name: "Material", Description: "Material name", Importable: true},
				{Key: "UnitWeight", Name: "UnitWeight", Description: "Weight per unit volume", Units: "kN/m3", Importable: true, Dim: weight},
				{Key: "E1", Name: "E1", Description: "Modulus of elasticity", Units: "kN/m2", Importable: true, Dim: stress},
				{Key: "U12", Name: "U12", Description: "Poisson ratio", Importable: true},
			},
			Records: [][]string{
				{"4000Psi", "23.5631", "24855578.06", "0.2"},
				{"A992Fy50", "76.9729", "199947978.8", "0.3"},
			},
		},
		{
			Key:        "Frame Loads - Distributed",
			Name:       "Frame Loads - Distributed",
			ImportType: ImportUnlocked,
			Fields: []SimField{
				{Key: "Frame", Name: "Frame", Description: "Frame label", Importable: true},
				{Key: "LoadPat", Name: "LoadPat", Description: "Load pattern name", Importable: true},
				{Key: "Dir", Name: "Dir", Description: "Load direction", Importable: true},
				{Key: "FOverLA", Name: "FOverLA", Description: "Load at start", Units: "kN/m", Importable: true, Dim: line},
				{Key: "FOverLB", Name: "FOverLB", Description: "Load at end", Units: "kN/m", Importable: true, Dim: line},
			},
		},
		{
			Key:        "Base Reactions",
			Name:       "Base Reactions",
			ImportType: ImportNone,
			Fields: []SimField{
				{Key: "OutputCase", Name: "OutputCase", Description: "Output case name"},
				{Key: "GlobalFX", Name: "GlobalFX", Description: "Global X reaction", Units: "kN", Dim: force},
				{Key: "GlobalFZ", Name: "GlobalFZ", Description: "Global Z reaction", Units: "kN", Dim: force},
			},
			Records: [][]string{
				{"DEAD", "0", "61.2"},
			},
		},
	}
}
