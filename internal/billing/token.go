package billing

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"agendly/internal/types"
)

// tokenPrefix is the fixed prefix of every correlation token. The full wire
// format is sub_{userId}_{timestampMillis} and must round-trip exactly
// between initiation and webhook reconciliation.
const tokenPrefix = "sub_"

// lastTokenMillis holds the millisecond timestamp of the most recently
// minted token. Minting bumps past it so two initiations in the same
// millisecond still produce distinct, strictly increasing tokens.
var lastTokenMillis atomic.Int64

// MintToken builds a correlation token for the given user at the given time.
// The embedded timestamp is monotonically increasing across the process, so
// the reconciler can order events from the same user without a server-side
// join.
func MintToken(userID string, now time.Time) string {
	millis := now.UnixMilli()
	for {
		last := lastTokenMillis.Load()
		if millis <= last {
			millis = last + 1
		}
		if lastTokenMillis.CompareAndSwap(last, millis) {
			break
		}
	}
	return fmt.Sprintf("%s%s_%d", tokenPrefix, userID, millis)
}

// ParseToken recovers the originating user and initiation time from a
// correlation token. User IDs may themselves contain underscores (UUIDs do
// not, but the format does not forbid it), so the timestamp is taken from
// the final underscore-separated segment.
func ParseToken(token string) (userID string, ts time.Time, err error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return "", time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidToken,
			"correlation token must start with "+tokenPrefix, nil)
	}

	rest := strings.TrimPrefix(token, tokenPrefix)
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 || i == len(rest)-1 {
		return "", time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidToken,
			"correlation token is missing the user or timestamp segment", nil)
	}

	userID = rest[:i]
	millis, convErr := strconv.ParseInt(rest[i+1:], 10, 64)
	if convErr != nil {
		return "", time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidToken,
			"correlation token timestamp is not numeric", convErr)
	}

	return userID, time.UnixMilli(millis).UTC(), nil
}
