package auth

import (
	"encoding/json"
	"strconv"
)

// ClaimID is the userId claim. Identity providers emit it either as a JSON
// string or as a number; anything else decodes as absent.
type ClaimID string

func (c *ClaimID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = ClaimID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = ClaimID(n.String())
		return nil
	}
	*c = ""
	return nil
}

// ResolveCallerID extracts the internal user id from validated claims.
// Absent, malformed and non-positive ids all yield 0, which callers must
// treat as unauthenticated.
func ResolveCallerID(claims *Claims) uint {
	if claims == nil || claims.UserID == "" {
		return 0
	}
	id, err := strconv.ParseUint(string(claims.UserID), 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		return 0
	}
	return uint(id)
}
