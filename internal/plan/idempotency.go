package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MaxIdempotencyKeyLen bounds client-supplied idempotency keys.
const MaxIdempotencyKeyLen = 200

// idempotencyScope derives the owning key a request outcome is stored
// under. Scoping by user, endpoint, and date keeps one client key from
// colliding across days or endpoints.
func idempotencyScope(userID, endpoint, date, clientKey string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n%s", userID, endpoint, date, clientKey)
	return hex.EncodeToString(h.Sum(nil))
}

// hashCommand produces a stable hash of the normalized command. Two
// bodies that normalize identically hash identically; struct field
// order fixes the JSON byte layout.
func hashCommand(cmd *Command) (string, error) {
	b, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("hashing command: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
