package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is a refresh session of the site administrator. Only the SHA-256 of
// the refresh token is stored.
type Session struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	TokenHash string    `bson:"tokenHash" json:"tokenHash"`
	Sub       string    `bson:"sub" json:"sub"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// HashToken returns the hex SHA-256 of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
