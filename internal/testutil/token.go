package testutil

// FixedTokenGenerator returns the same pass token every time.
//
// Unlike processor.FixedGenerator, which returns tokens in sequence and
// panics on exhaustion, this generator never runs out. Scenarios that
// mint an unknown number of passes use it so golden traces stay
// byte-identical across runs.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator for the given token. An
// empty token defaults to "test-pass-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-pass-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed pass token.
//
// Implements processor.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
