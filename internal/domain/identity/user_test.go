package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUser_Initials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"John Smith", "JS"},
		{"ada  lovelace", "AL"},
		{"Prince", "P"},
		{"", ""},
		{"émile zola", "ÉZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, User{Name: tt.name}.Initials())
		})
	}
}

func TestCredential_Verify(t *testing.T) {
	cred, err := NewCredential(User{CustomerID: "CUST001"}, "password", bcrypt.MinCost)
	require.NoError(t, err)

	assert.Equal(t, "CUST001", cred.CustomerID)
	assert.True(t, cred.Verify("password"))
	assert.False(t, cred.Verify("Password"))
	assert.False(t, cred.Verify(""))
}
