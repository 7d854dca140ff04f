package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobreview-engine/internal/config"
)

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()
	acct := "jobreview:imap:me@imap.example.com"

	_, err := GetIMAPPassword(acct)
	assert.ErrorIs(t, err, ErrNoPassword)

	require.NoError(t, SetIMAPPassword(acct, "hunter2"))
	pw, err := GetIMAPPassword(acct)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.True(t, HasIMAPPassword(acct))

	require.NoError(t, DeleteIMAPPassword(acct))
	require.NoError(t, DeleteIMAPPassword(acct))
	assert.False(t, HasIMAPPassword(acct))
}

func TestEnvFallback(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvIMAPPassword, "from-env")
	pw, err := GetIMAPPassword("nobody")
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestValidation(t *testing.T) {
	assert.Error(t, SetIMAPPassword(" ", "x"))
	assert.Error(t, SetIMAPPassword("a", ""))
	assert.Error(t, DeleteIMAPPassword(""))
}

func TestIMAPKeyringAccount(t *testing.T) {
	cfg := config.Default()
	cfg.Email.Username = "me@example.com"
	assert.Equal(t, "jobreview:imap:me@example.com@imap.gmail.com", IMAPKeyringAccount(cfg))
}
