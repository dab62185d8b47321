// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TOKEN_EXPIRE_TIME_SEC indicates how many seconds until token expiration (0 => never).
	TOKEN_EXPIRE_TIME_SEC int
)

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var and sets TOKEN_EXPIRE_TIME_SEC accordingly.
func parseTokenExpireTime() {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TOKEN_EXPIRE_TIME_SEC = 0
	} else {
		d, err := time.ParseDuration(duration)
		if err != nil {
			fmt.Printf("failed to parse token expire time: %v\n", err)
			os.Exit(1)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
// Tokens only need to outlive the process: a restart tears down every table,
// so there is nothing for an old token to reattach to.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTokenExpireTime()
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	parseTokenExpireTime()
	return nil
}

// SessionClaims identifies a seated player across reconnections.
type SessionClaims struct {
	SessionID uuid.UUID
	TableID   uuid.UUID
	Seat      int
}

// CreateSessionToken creates a signed token binding a session to its table
// and seat. The token is the reconnection capability: presenting it rebinds
// the caller to the same seat.
func CreateSessionToken(c SessionClaims) (string, error) {
	claims := jwt.MapClaims{
		"sub":  c.SessionID.String(),
		"tbl":  c.TableID.String(),
		"seat": c.Seat,
	}

	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateSessionToken verifies a token string and returns its claims.
func AuthenticateSessionToken(tokenString string) (SessionClaims, error) {
	var out SessionClaims

	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})

	if err != nil {
		return out, fmt.Errorf("session token parse error: %w", err)
	}
	if !t.Valid {
		return out, fmt.Errorf("invalid session token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return out, fmt.Errorf("invalid session token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return out, fmt.Errorf("missing sub in session token")
	}
	if out.SessionID, err = uuid.Parse(sub); err != nil {
		return out, fmt.Errorf("malformed session id: %w", err)
	}

	tbl, ok := claims["tbl"].(string)
	if !ok {
		return out, fmt.Errorf("missing tbl in session token")
	}
	if out.TableID, err = uuid.Parse(tbl); err != nil {
		return out, fmt.Errorf("malformed table id: %w", err)
	}

	// JSON numbers decode as float64.
	seat, ok := claims["seat"].(float64)
	if !ok {
		return out, fmt.Errorf("missing seat in session token")
	}
	out.Seat = int(seat)

	return out, nil
}
