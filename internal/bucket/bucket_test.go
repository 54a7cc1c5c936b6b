package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveID_Deterministic(t *testing.T) {
	a := DeriveID("correct horse battery staple")
	b := DeriveID("correct horse battery staple")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // 32 bytes hex-encoded
}

func TestDeriveID_DistinctPassphrases(t *testing.T) {
	assert.NotEqual(t, DeriveID("alpha"), DeriveID("beta"))
	assert.NotEqual(t, DeriveID("alpha"), DeriveID("alpha "))
}
