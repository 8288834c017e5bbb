package testutil

// FixedTokenGenerator generates the same session token every time.
//
// The same script with the same FixedTokenGenerator produces byte-identical
// submissions, so golden payloads and submission ids stay stable.
//
// Unlike engine.FixedGenerator which returns tokens in sequence, this
// generator never runs out.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a fixed session token generator.
//
// The token is typically set in the scenario YAML:
//
//	session_token: "test-session-0001"
//
// If token is empty, Generate() returns "test-session-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-session-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed session token.
//
// Implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
