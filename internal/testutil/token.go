package testutil

// FixedTokenGenerator returns the same tick token every time, so log output
// from a scheduler run can be compared byte for byte.
//
// Stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator returns a generator for token. An empty token
// becomes "test-tick-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-tick-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
