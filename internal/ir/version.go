package ir

// Version constants for the payload schema and engine.
const (
	// PayloadVersion is the submission payload schema version.
	PayloadVersion = "1"

	// EngineVersion is the formflow engine version.
	EngineVersion = "0.1.0"
)
