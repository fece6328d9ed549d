package memoryservice

import (
	"strconv"
	"strings"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
)

// idPrefix makes a memory's wire ID opaque (spec.md §3: "id ... opaque
// stable identifier, string") while the vectorstore keeps its own
// int64 primary key underneath.
const idPrefix = "mem_"

func formatID(id int64) string {
	return idPrefix + strconv.FormatInt(id, 10)
}

// parseMemID recovers the vectorstore int64 key from a wire ID,
// tolerating the bare digits too so a caller that copy-pasted an old
// numeric ID still resolves.
func parseMemID(s string) (int64, error) {
	const op = "memoryservice.parseMemID"
	digits := strings.TrimPrefix(s, idPrefix)
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, apperr.Newf(apperr.BadInput, op, "invalid memory id %q", s)
	}
	return id, nil
}
