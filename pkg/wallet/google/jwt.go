package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/walletobjects/v1"
)

// signSaveJWT signs the save-to-wallet claims with the service account key.
// Keys copied from env files often carry literal "\n" sequences.
func signSaveJWT(object *walletobjects.GenericObject, creds Credentials, origin string, now time.Time) (string, error) {
	keyPEM := strings.ReplaceAll(creds.PrivateKey, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(keyPEM))
	if err != nil {
		return "", fmt.Errorf("parse service account key: %w", err)
	}
	claims := jwt.MapClaims{
		"iss":     creds.ClientEmail,
		"aud":     "google",
		"typ":     "savetowallet",
		"iat":     now.Unix(),
		"origins": []string{origin},
		"payload": map[string]interface{}{
			"genericObjects": []*walletobjects.GenericObject{object},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign save jwt: %w", err)
	}
	return token, nil
}
