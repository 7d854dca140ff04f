package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"

	"jobreview-engine/internal/config"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "jobreview"
	// EnvIMAPPassword is consulted when the keychain has no entry.
	EnvIMAPPassword = "JOBREVIEW_IMAP_PASSWORD"
)

var ErrNoPassword = errors.New("IMAP password not found")

func GetIMAPPassword(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	if pw := strings.TrimSpace(os.Getenv(EnvIMAPPassword)); pw != "" {
		return pw, nil
	}
	return "", errors.WithHint(ErrNoPassword, "run `jobreview secret set-imap` or set "+EnvIMAPPassword)
}

func SetIMAPPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return errors.Wrap(keyring.Set(KeyringService, keyringAccount, password), "keyring set")
}

func DeleteIMAPPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return errors.Wrap(err, "keyring delete")
}

func HasIMAPPassword(keyringAccount string) bool {
	_, err := GetIMAPPassword(keyringAccount)
	return err == nil
}

func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf(
		"jobreview:imap:%s@%s",
		cfg.Email.Username,
		cfg.Email.IMAPHost,
	)
}
