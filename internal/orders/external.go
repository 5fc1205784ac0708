package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Order external ids are namespaced by channel so one caller can never
// create or replay an order in another caller's space:
//
//	web:user:<user id>:<ref>
//	web:guest:<email digest>:<ref>
//	b2b:<client id>:<ref>
//
// A ref never contains ':' so the last segment is always the ref.
const (
	nsWeb = "web:"
	nsB2B = "b2b:"
)

var ErrInvalidExternalID = errors.New("external_id must be 1-64 characters without ':'")

var validate = validator.New()

func checkRef(ref string) error {
	if err := validate.Var(ref, "required,max=64,excludes=:"); err != nil {
		return ErrInvalidExternalID
	}
	return nil
}

// WebExternalID scopes a storefront ref to the signed-in user, or for guests
// to a digest of their email.
func WebExternalID(userID, email, ref string) (string, error) {
	if err := checkRef(ref); err != nil {
		return "", err
	}
	if userID != "" {
		return nsWeb + "user:" + userID + ":" + ref, nil
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return nsWeb + "guest:" + hex.EncodeToString(sum[:8]) + ":" + ref, nil
}

func B2BExternalID(clientID, ref string) (string, error) {
	if err := checkRef(ref); err != nil {
		return "", err
	}
	return nsB2B + clientID + ":" + ref, nil
}

// B2BClient returns the client id that owns a b2b external id.
func B2BClient(externalID string) (string, bool) {
	rest, ok := strings.CutPrefix(externalID, nsB2B)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return "", false
	}
	return rest[:i], true
}
