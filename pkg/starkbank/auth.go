package starkbank

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL keeps access tokens short-lived; one is minted per request.
const tokenTTL = 30 * time.Second

// parsePrivateKey accepts SEC1 ("EC PRIVATE KEY") or PKCS8 ("PRIVATE KEY")
// PEM blocks carrying a P-256 key.
func parsePrivateKey(pemData string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key")
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T, expected *ecdsa.PrivateKey", key)
		}
		return ecKey, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// accessToken mints an ES256 token identifying the project for one request.
func (c *Client) accessToken(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss": fmt.Sprintf("project/%s", c.projectID),
		"sub": c.projectID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(c.privateKey)
}
