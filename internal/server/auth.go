package server

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"

	"github.com/ppdx999/lazydb/internal/config"
)

// Authenticator handles SSH authentication against the configured
// authorized key list.
type Authenticator struct {
	config *config.Config
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(cfg *config.Config) *Authenticator {
	return &Authenticator{config: cfg}
}

// PublicKeyHandler returns a handler for public key authentication.
// Handlers run per-connection, concurrent with config reloads, so the
// SSH section is snapshotted through the locked accessor.
func (a *Authenticator) PublicKeyHandler() ssh.PublicKeyHandler {
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		sshCfg := a.config.SSHSettings()
		if keyAuthorized(sshCfg.AuthorizedKeys, key) {
			log.Printf("authenticated %s from %s", FingerprintKeyShort(key), ctx.RemoteAddr())
			return true
		}
		if sshCfg.AllowKeyless {
			log.Printf("keyless access from %s", ctx.RemoteAddr())
			return true
		}
		log.Printf("rejected key %s from %s", FingerprintKeyShort(key), ctx.RemoteAddr())
		return false
	}
}

// KeyboardInteractiveHandler returns a handler for keyboard-interactive
// auth, or nil when keyless access is disabled.
func (a *Authenticator) KeyboardInteractiveHandler() ssh.KeyboardInteractiveHandler {
	if !a.config.SSHSettings().AllowKeyless {
		return nil
	}
	return func(ctx ssh.Context, challenger gossh.KeyboardInteractiveChallenge) bool {
		log.Printf("keyless access from %s", ctx.RemoteAddr())
		return true
	}
}

func keyAuthorized(authorized []string, key ssh.PublicKey) bool {
	for _, entry := range authorized {
		parsed, _, _, _, err := ssh.ParseAuthorizedKey([]byte(entry))
		if err != nil {
			log.Printf("skipping unparsable authorized key: %v", err)
			continue
		}
		if ssh.KeysEqual(parsed, key) {
			return true
		}
	}
	return false
}

// FingerprintKey returns the SHA256 fingerprint of a public key.
func FingerprintKey(key ssh.PublicKey) string {
	hash := sha256.Sum256(key.Marshal())
	return fmt.Sprintf("SHA256:%s", base64.StdEncoding.EncodeToString(hash[:]))
}

// FingerprintKeyShort returns a shortened fingerprint for display.
func FingerprintKeyShort(key ssh.PublicKey) string {
	fp := FingerprintKey(key)
	if len(fp) > 20 {
		return fp[:20] + "..."
	}
	return fp
}
