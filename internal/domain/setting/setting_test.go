package setting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValues(t *testing.T) {
	v := Values{
		InPostEnabled:  "Yes",
		InPostAPIToken: "  ",
		GLSEnabled:     "0",
		SMTPPort:       "587",
	}
	assert.True(t, v.Bool(InPostEnabled))
	assert.False(t, v.Bool(GLSEnabled))
	assert.False(t, v.Bool(SMSEnabled))
	assert.Equal(t, "fallback", v.String(InPostAPIToken, "fallback"))
	assert.Equal(t, 587, v.Int(SMTPPort, 25))
	assert.Equal(t, 25, v.Int(SMTPHost, 25))
	assert.Equal(t, []string{InPostAPIToken, InPostOrganizationID}, v.Missing(InPostAPIToken, InPostOrganizationID, SMTPPort))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("inpost.api_token"))
	assert.ErrorIs(t, ValidateKey("InPost.Token"), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(""), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey("a b"), ErrInvalidKey)
}

func TestSecrets(t *testing.T) {
	assert.True(t, IsSecret(GLSPassword))
	assert.True(t, IsSecret(InPostAPIToken))
	assert.True(t, IsSecret(EmailAPIKey))
	assert.False(t, IsSecret(EmailFrom))

	assert.Equal(t, "********cdef", Mask("0123abcdcdef"))
	assert.Equal(t, "***", Mask("abc"))
}
