package chunker

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// chunkIDSpace is the fixed UUID namespace under which chunk identifiers
// are derived. Changing it invalidates every stored chunk ID.
var chunkIDSpace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DeriveChunkID maps (source key, namespace, content category, sequence
// index) to a stable content-addressed identifier in the vector store's
// UUID space.
//
// The derivation is a pure function: identical inputs produce an identical
// identifier across process runs. That determinism is what makes
// re-ingestion of unchanged content an idempotent overwrite and makes
// delete-before-reinsert safe when content changes.
//
// The fields are joined with a NUL delimiter so no concatenation of
// distinct inputs can collide, then hashed via uuid.NewSHA1.
func DeriveChunkID(sourceKey string, ns domain.Namespace, category string, seqIndex int) string {
	key := strings.Join([]string{
		sourceKey,
		string(ns),
		category,
		strconv.Itoa(seqIndex),
	}, "\x00")
	return uuid.NewSHA1(chunkIDSpace, []byte(key)).String()
}
