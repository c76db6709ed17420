package integration

import (
	"fmt"

	"github.com/google/uuid"
)

// sourceID derives a stable UUID for a business document. Reposting the
// same document produces the same id, which the source link unique index
// turns into a duplicate-posting error.
func sourceID(kind string, id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", kind, id)))
}
