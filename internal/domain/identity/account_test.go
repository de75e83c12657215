package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/internal/domain/document"
)

func TestNewAccount(t *testing.T) {
	acc, err := NewAccount(" Jane ", " Jane@Example.com ", "s3cretpass", "")
	require.NoError(t, err)

	assert.Equal(t, "Jane", acc.Name)
	assert.Equal(t, "jane@example.com", acc.Email)
	assert.Equal(t, RoleUser, acc.Role)
	assert.NotEqual(t, "s3cretpass", acc.PasswordHash)
	assert.True(t, acc.VerifyPassword("s3cretpass"))
	assert.False(t, acc.VerifyPassword("wrong"))
}

func TestNewAccount_Validation(t *testing.T) {
	tests := []struct {
		name, email, password, role string
	}{
		{"", "a@b.co", "password1", ""},
		{"A", "not-an-email", "password1", ""},
		{"A", "a@b.co", "short", ""},
		{"A", "a@b.co", "password1", "owner"},
	}
	for _, tt := range tests {
		_, err := NewAccount(tt.name, tt.email, tt.password, tt.role)
		assert.Error(t, err)
	}
}

func TestAccountFromDocument(t *testing.T) {
	acc, err := NewAccount("Jane Doe", "jane@example.com", "password1", RoleAdmin)
	require.NoError(t, err)

	loaded := AccountFromDocument(document.Document{ID: "u1", Fields: acc.Fields()})

	assert.Equal(t, "u1", loaded.ID)
	assert.True(t, loaded.IsAdmin())
	assert.True(t, loaded.VerifyPassword("password1"))
	assert.Contains(t, loaded.AvatarURL(), "seed=Jane+Doe")
}

func TestAccount_VerifyPasswordWithoutHash(t *testing.T) {
	acc := &Account{}
	assert.False(t, acc.VerifyPassword(""))
}

func TestAuthStateEvents(t *testing.T) {
	in := NewSignedInEvent("u1")
	out := NewSignedOutEvent("u1")

	assert.Equal(t, EventTypeSignedIn, in.EventType())
	assert.Equal(t, AuthState{UserID: "u1", Authenticated: true}, in.State())
	assert.Equal(t, EventTypeSignedOut, out.EventType())
	assert.False(t, out.State().Authenticated)
	assert.Equal(t, "u1", out.AggregateID())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", RoleUser, false},
		{"admin", RoleAdmin, false},
		{" User ", RoleUser, false},
		{"owner", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
