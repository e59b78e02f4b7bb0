package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	v := IRObject{"kind": IRString("reference"), "source": IRString("p")}

	h1, err := Hash(DomainExpression, v)
	require.NoError(t, err)
	h2, err := Hash(DomainExpression, v)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"x": 1, "y": 2}
	b := map[string]any{"y": 2, "x": 1}

	assert.Equal(t, MustHash(DomainModel, a), MustHash(DomainModel, b))
}

func TestHashDomainSeparation(t *testing.T) {
	v := IRString("same")

	assert.NotEqual(t, MustHash(DomainExpression, v), MustHash(DomainModel, v))
	assert.NotEqual(t, MustHash(DomainModel, v), MustHash(DomainDocument, v))
}

func TestHashNullSeparator(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestHashErrors(t *testing.T) {
	_, err := Hash(DomainExpression, 1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainExpression)

	assert.Panics(t, func() { MustHash(DomainExpression, nil) })
}
