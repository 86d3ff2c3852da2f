package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func TestIssueAndValidateToken(t *testing.T) {
	token, err := IssueToken(testSecret, 42, "analyst@example.com", RoleAnalyst)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "analyst@example.com", claims.Email)
	assert.Equal(t, RoleAnalyst, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "research-platform", claims.Issuer)
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken("", 1, "a@b.com", RoleInvestor)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, 7, "inv@example.com", RoleInvestor)
	require.NoError(t, err)

	_, err = ValidateToken("different-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken(testSecret, "not.a.token")
	assert.Error(t, err)

	_, err = ValidateToken("", "whatever")
	assert.Error(t, err)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	token, err := IssueToken(testSecret, 9, "admin@example.com", "superuser")
	require.NoError(t, err)

	_, err = ValidateToken(testSecret, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}
