package ghost

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const tokenTTL = 5 * time.Minute

// adminToken builds the short-lived JWT the Ghost Admin API expects. The
// admin key is "<key id>:<hex secret>"; the token is HS256 over fixed
// claims with the key id in the header.
func adminToken(adminAPIKey string, now time.Time) (string, error) {
	keyID, secretHex, ok := strings.Cut(adminAPIKey, ":")
	if !ok || keyID == "" || secretHex == "" {
		return "", fmt.Errorf("admin api key must be of form id:secret")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("admin api key secret is not hex: %w", err)
	}

	header := map[string]string{
		"alg": "HS256",
		"kid": keyID,
		"typ": "JWT",
	}
	claims := map[string]any{
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
		"aud": "/admin/",
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	enc := base64.RawURLEncoding
	signing := enc.EncodeToString(headerJSON) + "." + enc.EncodeToString(claimsJSON)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signing))

	return signing + "." + enc.EncodeToString(mac.Sum(nil)), nil
}
