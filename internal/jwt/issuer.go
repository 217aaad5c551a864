package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/aulaviva/invites/internal/claims"
	"github.com/aulaviva/invites/internal/domain/repository"
)

// Issuer firma session tokens con el claims bag del Principal.
type Issuer struct {
	Iss       string
	Keys      *KeySet
	AccessTTL time.Duration

	// Now permite fijar el reloj en tests.
	Now func() time.Time
}

func NewIssuer(iss string, keys *KeySet) *Issuer {
	return &Issuer{Iss: iss, Keys: keys, AccessTTL: 15 * time.Minute, Now: time.Now}
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}

// IssueSession emite un access token para sub. El claims bag viaja en
// "custom" bajo el namespace de sistema, igual que lo lee Parse.
func (i *Issuer) IssueSession(sub, email string, c repository.Claims) (string, time.Time, error) {
	if i.Keys == nil {
		return "", time.Time{}, ErrNoSigningKey
	}
	now := i.now()
	exp := now.Add(i.AccessTTL)

	mc := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": sub,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
		"custom": map[string]any{
			claims.SystemNamespace(i.Iss): claims.Encode(c),
		},
	}
	if email != "" {
		mc["email"] = email
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, mc)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.Keys.Priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Keyfunc valida el kid contra la clave cargada.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if i.Keys == nil {
			return nil, ErrNoSigningKey
		}
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.Keys.KID {
			return nil, errors.New("kid_not_found")
		}
		return i.Keys.Pub, nil
	}
}
