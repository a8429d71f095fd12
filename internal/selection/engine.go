// Package selection resolves a delivery request (tag filter, size key,
// index or random) to exactly one stored image. Rotation mode is
// deterministic: a 1-based index wrapped modulo the candidate count.
// Random mode memoizes the draw per client fingerprint in the store, so
// the same client keeps its image for the TTL window across requests and
// process restarts.
package selection

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"picserve/internal/models"
	"picserve/internal/repositories"

	"gorm.io/gorm"
)

// ErrNoCandidates means nothing matched the filter. It is a soft outcome:
// callers substitute the configured fallback image.
var ErrNoCandidates = errors.New("no images match the requested filter")

// Request describes one resolved delivery request.
type Request struct {
	Tags    []string
	SizeKey string // raw size segment, part of the random fingerprint

	Random bool
	Index  int // 1-based, rotation mode only

	// ClientKey identifies the requesting client (address and user agent);
	// only its fingerprint combination is ever stored.
	ClientKey string
}

type Engine struct {
	images repositories.ImageRepository
	picks  repositories.RandomPickRepository
	ttl    time.Duration
	randIn func(n int) int
}

// NewEngine wires the selection engine. randIn draws a uniform index in
// [1,n]; pass nil for the default math/rand source — tests inject a
// deterministic one.
func NewEngine(images repositories.ImageRepository, picks repositories.RandomPickRepository, ttl time.Duration, randIn func(n int) int) *Engine {
	if randIn == nil {
		randIn = func(n int) int { return rand.Intn(n) + 1 }
	}
	return &Engine{
		images: images,
		picks:  picks,
		ttl:    ttl,
		randIn: randIn,
	}
}

// Select returns the image for the request, or ErrNoCandidates.
func (e *Engine) Select(db *gorm.DB, req Request) (*models.Image, error) {
	candidates, err := e.images.FindCandidates(db, req.Tags)
	if err != nil {
		return nil, err
	}
	n := len(candidates)
	if n == 0 {
		return nil, ErrNoCandidates
	}

	index := req.Index
	if req.Random {
		index, err = e.stickyIndex(db, req, n)
		if err != nil {
			return nil, err
		}
	}

	return &candidates[wrap(index, n)-1], nil
}

// stickyIndex reuses the memoized draw for the fingerprint while it is
// unexpired, otherwise draws a fresh index and persists it with a new
// expiry. The read-then-upsert runs in a transaction to narrow the race
// window between concurrent first requests; the upsert itself is a single
// conflict-update statement, so the worst case is last-writer-wins on an
// identical-shape row.
func (e *Engine) stickyIndex(db *gorm.DB, req Request, n int) (int, error) {
	fp := Fingerprint(req.ClientKey, req.SizeKey, req.Tags)

	var index int
	err := db.Transaction(func(tx *gorm.DB) error {
		pick, err := e.picks.Find(tx, fp)
		if err != nil {
			return err
		}

		now := time.Now()
		if pick != nil && pick.ExpiresAt.After(now) {
			// Still re-wrapped against the current candidate count by the
			// caller: the catalog may have shrunk since the draw.
			index = pick.ChosenIndex
			return nil
		}

		index = e.randIn(n)
		return e.picks.Upsert(tx, &models.RandomPick{
			Fingerprint: fp,
			ChosenIndex: index,
			ExpiresAt:   now.Add(e.ttl),
		})
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// wrap maps any 1-based index onto [1,n], wrapping out-of-range values
// instead of failing.
func wrap(index, n int) int {
	m := (index - 1) % n
	if m < 0 {
		m += n
	}
	return m + 1
}

// Fingerprint derives the memo key from client identity, size key and the
// sorted tag filter. Sorting makes the fingerprint independent of the tag
// order in the request path.
func Fingerprint(clientKey, sizeKey string, tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)

	sum := md5.Sum([]byte(clientKey + "|" + sizeKey + "|" + strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}
