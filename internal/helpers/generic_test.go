package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateToken(t *testing.T) {
	assert := assert.New(t)

	one, err := GenerateToken(10)
	assert.NoError(err)
	assert.Len(one, 20)

	two, err := GenerateToken(10)
	assert.NoError(err)
	assert.NotEqual(one, two)
}

func TestGenerateCodeChallenge(t *testing.T) {
	assert := assert.New(t)

	// verifier and challenge from RFC 7636 appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", GenerateCodeChallenge(verifier))
}
