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

// privateKey and publicKey are used for signing and verifying seat tokens.
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

// Init generates a fresh ed25519 key pair at runtime and sets the token
// expiration. Tables do not outlive the process, so neither do seat tokens.
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

// SeatClaims identifies one seat at one table. A token is minted at join and
// must accompany every action for that seat.
type SeatClaims struct {
	SeatID  uuid.UUID
	TableID uuid.UUID
}

// CreateSeatToken creates a signed token with "sub" = seat id and "tbl" =
// table id, expiring after TOKEN_EXPIRE_TIME_SEC when configured.
func CreateSeatToken(seatID, tableID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub": seatID.String(),
		"tbl": tableID.String(),
	}

	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateSeatToken verifies a token string and returns its seat claims.
func AuthenticateSeatToken(tokenString string) (SeatClaims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})

	if err != nil {
		return SeatClaims{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return SeatClaims{}, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return SeatClaims{}, fmt.Errorf("invalid jwt claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return SeatClaims{}, fmt.Errorf("missing sub in jwt")
	}
	tbl, ok := claims["tbl"].(string)
	if !ok {
		return SeatClaims{}, fmt.Errorf("missing tbl in jwt")
	}

	seatID, err := uuid.Parse(sub)
	if err != nil {
		return SeatClaims{}, fmt.Errorf("sub is not a uuid: %w", err)
	}
	tableID, err := uuid.Parse(tbl)
	if err != nil {
		return SeatClaims{}, fmt.Errorf("tbl is not a uuid: %w", err)
	}

	return SeatClaims{SeatID: seatID, TableID: tableID}, nil
}
