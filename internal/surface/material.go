package surface

// Material is a ground surface with a fixed shortwave albedo in [0, 1].
type Material struct {
	Name   string  `json:"name"`
	Albedo float64 `json:"albedo"`
}

// Emissivity is modelled as the absorbed fraction, 1 - albedo.
func (m Material) Emissivity() float64 {
	return 1 - m.Albedo
}

var (
	Asphalt  = Material{Name: "Asphalt", Albedo: 0.075}
	Concrete = Material{Name: "Concrete", Albedo: 0.25}
	Grass    = Material{Name: "Grass", Albedo: 0.275}
	PUTrack  = Material{Name: "PU Track", Albedo: 0.125}
)

// DefaultMaterials returns the material table in reporting order. The slice
// is a fresh copy on every call.
func DefaultMaterials() []Material {
	return []Material{Asphalt, Concrete, Grass, PUTrack}
}
