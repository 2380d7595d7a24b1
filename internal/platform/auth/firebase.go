package auth

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier checks Firebase ID tokens, including revocation.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Order matters: a certificate fetch failure must not read as a bad token.
var firebaseFailures = []struct {
	is  func(error) bool
	err error
}{
	{fbauth.IsCertificateFetchFailed, ErrCertificateFetch},
	{fbauth.IsIDTokenExpired, ErrTokenExpired},
	{fbauth.IsIDTokenRevoked, ErrTokenRevoked},
	{fbauth.IsUserDisabled, ErrUserDisabled},
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*User, error) {
	token, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return nil, classifyFirebaseError(err)
	}
	return userFromClaims(token.UID, token.Claims), nil
}

func classifyFirebaseError(err error) error {
	for _, f := range firebaseFailures {
		if f.is(err) {
			return fmt.Errorf("%w: %v", f.err, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}

func userFromClaims(uid string, claims map[string]any) *User {
	u := &User{UID: uid}
	u.Email, _ = claims["email"].(string)
	u.EmailVerified, _ = claims["email_verified"].(bool)
	u.Name, _ = claims["name"].(string)
	return u
}

var _ Verifier = (*FirebaseVerifier)(nil)
