package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator delimits the entity kind from the identifier inside a cache key.
const KeySeparator = ":"

// Entity kinds used as cache key namespaces. Writers and invalidators MUST
// use the same kind constant for the same conceptual entity; a mismatch
// makes invalidation silently miss the entry and the stale value survives
// until TTL expiry.
const (
	KindAuthor           = "author"
	KindBook             = "book"
	KindReview           = "review"
	KindReviewScore      = "review_score"
	KindBookReviews      = "book_reviews"
	KindAuthorBooksCount = "author_books_count"
)

// Aggregate keys for full-collection listings. These are fixed literals
// rather than per-id keys because the listings embed many entities.
const (
	KeyAuthorsIndex = "authors_index:all"
	KeyAuthorsAll   = "authors:all"
	KeyBooksIndex   = "books_index:all"
)

// Key builds the canonical cache key for a single entity:
// lowercase kind, separator, decimal id. Deterministic and injective for
// distinct (kind, id) pairs as long as kinds carry no separator themselves.
func Key(kind string, id int64) string {
	return strings.ToLower(kind) + KeySeparator + strconv.FormatInt(id, 10)
}

// ArgsKey builds a key for argument-derived listings (sorted stats pages
// and the like) by hashing the argument tuple. The hash keeps arbitrary
// user-supplied values out of the key space while staying stable across
// processes.
func ArgsKey(kind string, args ...string) string {
	h := xxhash.New()
	for _, a := range args {
		h.WriteString(a)
		h.Write([]byte{0})
	}
	return strings.ToLower(kind) + KeySeparator + strconv.FormatUint(h.Sum64(), 16)
}
