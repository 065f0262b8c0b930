package world

// EnvState is the environment snapshot handed to the mesh builder: values
// that shape geometry output but are not part of any single chunk.
type EnvState struct {
	SeaLevel  float64
	TimeOfDay float64 // hours, [0,24)
}
