package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordProblems(t *testing.T) {
	tests := []struct {
		name string
		pwd  string
		want []string
	}{
		{"valid", "Test@1234", nil},
		{"exactly eight characters", "Ab1@abcd", nil},
		{"seven characters", "Ab1@abc", []string{"at least 8 characters"}},
		{"seven characters multibyte", "Ab1@ééé", []string{"at least 8 characters"}},
		{"eight characters multibyte", "Ab1@éééé", nil},
		{"no lowercase", "ABCD@1234", []string{"one lowercase letter"}},
		{"non-ascii lowercase only", "ÉÉABC123@é", []string{"one lowercase letter"}},
		{"no uppercase", "abcd@1234", []string{"one uppercase letter"}},
		{"non-ascii uppercase only", "abcdÉ@123", []string{"one uppercase letter"}},
		{"no digit", "Abcd@efgh", []string{"one number"}},
		{"non-ascii digit only", "Abcd@efg٣", []string{"one number"}},
		{"no special", "Abcd12345", []string{"one special character (@$!%*?&)"}},
		{"special outside the set", "Abcd#1234", []string{"one special character (@$!%*?&)"}},
		{"empty", "", []string{
			"at least 8 characters",
			"one lowercase letter",
			"one uppercase letter",
			"one number",
			"one special character (@$!%*?&)",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PasswordProblems(tt.pwd))
		})
	}
}

func TestIsStrongPassword_ByteLimit(t *testing.T) {
	atLimit := "Aa1@" + strings.Repeat("x", MaxPasswordBytes-4)
	assert.True(t, IsStrongPassword(atLimit))
	assert.False(t, IsStrongPassword(atLimit+"x"))

	// 71 bytes of ASCII plus one two-byte rune crosses the byte limit.
	assert.False(t, IsStrongPassword(atLimit[:MaxPasswordBytes-1]+"é"))
}

type registration struct {
	Name     string `json:"name" validate:"required,personname"`
	Email    string `json:"email" validate:"required,simpleemail"`
	Password string `json:"password" validate:"required,strongpassword"`
}

func TestValidate(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(registration{Name: "Bob Jones", Email: "bob@medf.test", Password: "Bob@12345"}))

	err := v.Validate(registration{Name: "Bob Jones", Email: "bob@medf.test"})
	assert.ErrorIs(t, err, ErrMissingFields)

	err = v.Validate(registration{Name: "Bob Jones", Email: "bob@medf.test", Password: "Ab1@ééé"})
	require.Error(t, err)
	assert.Equal(t, "password is missing: at least 8 characters", err.Error())

	err = v.Validate(registration{Name: "Bob Jones", Email: "bob@medf.test", Password: "Aa1@" + strings.Repeat("x", 80)})
	require.Error(t, err)
	assert.Equal(t, "password must be at most 72 bytes long", err.Error())

	err = v.Validate(registration{Name: "Bob 2", Email: "bob@", Password: "Bob@12345"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name must contain only letters and spaces")
	assert.Contains(t, err.Error(), "email must be a valid address")
}
