package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	hashed, err := HashPassword("open sesame")
	require.NoError(t, err)
	require.NotEqual(t, "open sesame", hashed, "hash must not store the plaintext")

	empty := ""

	tests := []struct {
		name     string
		hash     *string
		password string
		wantErr  error
	}{
		{"no hash grants access", nil, "", nil},
		{"no hash ignores supplied password", nil, "anything", nil},
		{"empty hash grants access", &empty, "", nil},
		{"missing password", &hashed, "", ErrPasswordRequired},
		{"wrong password", &hashed, "open says me", ErrIncorrectPassword},
		{"correct password", &hashed, "open sesame", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.hash, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := HashPassword("hunter2")
	require.NoError(t, err)
	b, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "two hashes of the same password must differ")

	assert.NoError(t, Check(&a, "hunter2"))
	assert.NoError(t, Check(&b, "hunter2"))
}
