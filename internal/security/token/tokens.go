// Package tokens genera y valida tokens opacos de alta entropía.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// InvitationBytes es la entropía de un token de invitación (256 bits).
const InvitationBytes = 32

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateInvitationToken genera un token de invitación.
func GenerateInvitationToken() (string, error) {
	return GenerateOpaqueToken(InvitationBytes)
}

// WellFormedInvitation indica si s tiene la forma de un token de invitación
// (base64url sin padding de InvitationBytes bytes). Un token mal formado se
// rechaza sin consultar el ledger.
func WellFormedInvitation(s string) bool {
	if len(s) != base64.RawURLEncoding.EncodedLen(InvitationBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para guardar en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
