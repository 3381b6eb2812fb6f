package convcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SelectionHash digests a clip ID set into a stable hex key. IDs are
// deduplicated and sorted first, so ordering and repeats never change the
// resulting hash.
func SelectionHash(clipIDs []uuid.UUID) string {
	unique := make(map[uuid.UUID]struct{}, len(clipIDs))
	ids := make([]string, 0, len(clipIDs))
	for _, id := range clipIDs {
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	sum := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return hex.EncodeToString(sum[:])
}
