// Package runid names solve runs with sortable, time-ordered identifiers.
package runid

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const prefix = "run_"

// Crockford's base32, lower case.
var encoding = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)

// New returns a run id: "run_" followed by a UUIDv7 in 26 base32 chars.
// Ids generated later sort after earlier ones.
func New() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return prefix + encoding.EncodeToString(u[:]), nil
}

// Parse recovers the UUID behind a run id.
func Parse(id string) (uuid.UUID, error) {
	body, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("run id %q lacks the %q prefix", id, prefix)
	}
	if len(body) != 26 {
		return uuid.Nil, fmt.Errorf("run id %q must have 26 characters after the prefix, got %d", id, len(body))
	}
	raw, err := encoding.DecodeString(body)
	if err != nil {
		return uuid.Nil, fmt.Errorf("run id %q: %w", id, err)
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, err
	}
	if u.Version() != 7 {
		return uuid.Nil, fmt.Errorf("run id %q is not time-ordered (version %d)", id, u.Version())
	}
	return u, nil
}

// Time returns when the run id was generated, to the millisecond.
func Time(id string) (time.Time, error) {
	u, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec), nil
}
