package repo

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/kilnvcs/kiln/pkg/object"
)

// sshSignatureScheme tags armored commit signatures produced by an SSH key.
const sshSignatureScheme = "sshsig"

// defaultKeyNames are the ~/.ssh identities tried when no key is configured.
var defaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// SSHSignature is a decoded commit signature: the signing algorithm, the
// wire-format public key, and the raw signature blob. Its armored form is a
// single line so it fits the commit's signature header:
//
//	sshsig <algorithm> <base64 public key> <base64 blob>
type SSHSignature struct {
	Algorithm string
	PublicKey []byte
	Blob      []byte
}

// Armor encodes the signature as its single-line commit header value.
func (s *SSHSignature) Armor() string {
	return strings.Join([]string{
		sshSignatureScheme,
		s.Algorithm,
		base64.StdEncoding.EncodeToString(s.PublicKey),
		base64.StdEncoding.EncodeToString(s.Blob),
	}, " ")
}

// ParseSSHSignature decodes an armored commit signature.
func ParseSSHSignature(armored string) (*SSHSignature, error) {
	fields := strings.Fields(armored)
	if len(fields) != 4 || fields[0] != sshSignatureScheme {
		return nil, fmt.Errorf("malformed commit signature %q", armored)
	}
	pub, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("commit signature public key: %w", err)
	}
	blob, err := base64.StdEncoding.DecodeString(fields[3])
	if err != nil {
		return nil, fmt.Errorf("commit signature blob: %w", err)
	}
	return &SSHSignature{Algorithm: fields[1], PublicKey: pub, Blob: blob}, nil
}

// NewSSHSigner loads an SSH private key and returns a CommitSigner that
// produces armored signatures over the canonical commit payload, along with
// the key path it settled on. An empty keyPath falls back to the
// user.signing_key config value and then the default ~/.ssh identities.
func (r *Repo) NewSSHSigner(keyPath string) (CommitSigner, string, error) {
	path, err := r.signingKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read signing key %q: %w", path, err)
	}
	key, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parse signing key %q: %w", path, err)
	}
	pub := key.PublicKey().Marshal()

	sign := func(payload []byte) (string, error) {
		sig, err := key.Sign(rand.Reader, payload)
		if err != nil {
			return "", fmt.Errorf("ssh sign: %w", err)
		}
		armored := &SSHSignature{Algorithm: sig.Format, PublicKey: pub, Blob: sig.Blob}
		return armored.Armor(), nil
	}
	return sign, path, nil
}

// VerifyCommitSignature checks a signed commit: the armored signature must
// decode and must verify over the commit's signing payload with the embedded
// public key. An unsigned commit is an error.
func VerifyCommitSignature(c *object.CommitObj) error {
	if strings.TrimSpace(c.Signature) == "" {
		return fmt.Errorf("commit is not signed")
	}
	sig, err := ParseSSHSignature(c.Signature)
	if err != nil {
		return err
	}
	pub, err := ssh.ParsePublicKey(sig.PublicKey)
	if err != nil {
		return fmt.Errorf("commit signature public key: %w", err)
	}
	return pub.Verify(object.CommitSigningPayload(c), &ssh.Signature{
		Format: sig.Algorithm,
		Blob:   sig.Blob,
	})
}

// signingKeyPath picks the private key to sign with: an explicit path wins,
// then user.signing_key from config, then the first default identity that
// exists. ~ prefixes expand to the home directory.
func (r *Repo) signingKeyPath(explicit string) (string, error) {
	if path := strings.TrimSpace(explicit); path != "" {
		return expandHomePath(path)
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	if path := strings.TrimSpace(cfg.User.SigningKey); path != "" {
		return expandHomePath(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("signing key: resolve home dir: %w", err)
	}
	for _, name := range defaultKeyNames {
		candidate := filepath.Join(home, ".ssh", name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("signing key: %w", ErrNoSigningKey)
}

func expandHomePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("signing key: resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
