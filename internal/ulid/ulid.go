// Package ulid provides a thin wrapper around github.com/oklog/ulid/v2
// with prefixed identifiers for the application's row and request IDs.
//
// ULIDs are lexicographically sortable by time, which keeps database
// indexes and log output in creation order.
package ulid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Common prefixes for different parts of the application
const (
	// PrefixRequest is used for gateway request IDs
	PrefixRequest = "req"

	// PrefixIncident is used for incident rows
	PrefixIncident = "inc"

	// PrefixEvent is used for timeline event rows
	PrefixEvent = "evt"

	// PrefixSource is used for evidence source rows
	PrefixSource = "src"

	// PrefixChunk is used for evidence chunk rows
	PrefixChunk = "chk"

	// PrefixBackup is used for backup directory names
	PrefixBackup = "bak"

	// PrefixSeparator separates the prefix from the ULID
	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// ULID wraps ulid.ULID with an optional application prefix.
type ULID struct {
	ulid.ULID
	prefix string
}

// Generate creates a new ULID with the current timestamp.
func Generate() ULID {
	return NewWithTime(time.Now())
}

// GenerateWithPrefix creates a new ULID with the current timestamp and a prefix.
func GenerateWithPrefix(prefix string) ULID {
	id := NewWithTime(time.Now())
	id.prefix = prefix
	return id
}

// NewWithTime creates a new ULID with a specific timestamp.
func NewWithTime(t time.Time) ULID {
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	entropyLock.Unlock()
	return ULID{id, ""}
}

// Parse parses a plain or prefixed ULID string (e.g. "inc-01AN4Z07BY...").
func Parse(id string) (ULID, error) {
	parts := strings.SplitN(id, PrefixSeparator, 2)

	var rawID string
	var prefix string

	if len(parts) == 2 {
		prefix = parts[0]
		rawID = parts[1]
	} else {
		rawID = id
	}

	parsed, err := ulid.Parse(rawID)
	if err != nil {
		return ULID{}, err
	}

	return ULID{parsed, prefix}, nil
}

// Validate checks if a string is a valid plain or prefixed ULID.
func Validate(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// IsZero returns true if the ULID is the zero value.
func (u ULID) IsZero() bool {
	return u.ULID == ulid.ULID{}
}

// Prefix returns the prefix of the ULID.
func (u ULID) Prefix() string {
	return u.prefix
}

// String returns the prefixed string form when a prefix is set.
func (u ULID) String() string {
	if u.prefix == "" {
		return u.ULID.String()
	}
	return u.prefix + PrefixSeparator + u.ULID.String()
}

// Time returns the timestamp encoded in the ULID.
func (u ULID) Time() time.Time {
	return time.UnixMilli(int64(u.ULID.Time()))
}

// RequestID generates a prefixed ID for gateway requests.
func RequestID() string {
	return GenerateWithPrefix(PrefixRequest).String()
}

// IncidentID generates a prefixed ID for incident rows.
func IncidentID() string {
	return GenerateWithPrefix(PrefixIncident).String()
}

// EventID generates a prefixed ID for timeline event rows.
func EventID() string {
	return GenerateWithPrefix(PrefixEvent).String()
}

// SourceID generates a prefixed ID for evidence source rows.
func SourceID() string {
	return GenerateWithPrefix(PrefixSource).String()
}

// ChunkID generates a prefixed ID for evidence chunk rows.
func ChunkID() string {
	return GenerateWithPrefix(PrefixChunk).String()
}
