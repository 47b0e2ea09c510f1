package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	anon := Identity{}
	user := Identity{UserID: "u1"}
	staff := Identity{UserID: "u2", Admin: true}

	tests := []struct {
		name    string
		id      Identity
		cap     Capability
		wantErr error
	}{
		{"public anonymous", anon, Public, nil},
		{"public user", user, Public, nil},
		{"authenticated anonymous", anon, Authenticated, ErrUnauthenticated},
		{"authenticated user", user, Authenticated, nil},
		{"admin anonymous", anon, Admin, ErrUnauthenticated},
		{"admin plain user", user, Admin, ErrForbidden},
		{"admin staff", staff, Admin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.id, tt.cap)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAnonymous(t *testing.T) {
	assert.True(t, Identity{}.Anonymous())
	assert.False(t, Identity{UserID: "u1"}.Anonymous())
}
