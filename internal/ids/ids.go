// Package ids generates fallback release identifiers. Generators take an
// injected random source and clock so output is reproducible in tests.
package ids

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const isrcAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator produces ISRC and UPC codes when the caller did not supply one.
// rand.Rand is not safe for concurrent use, so draws are serialized; one
// Generator is shared by every request handler.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(rng *rand.Rand, now func() time.Time) *Generator {
	return &Generator{rng: rng, now: now}
}

// NewDefaultGenerator seeds from the wall clock.
func NewDefaultGenerator() *Generator {
	return NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// ISRC returns "US" + 4-digit year + 7 uppercase alphanumerics.
func (g *Generator) ISRC() string {
	g.mu.Lock()
	suffix := make([]byte, 7)
	for i := range suffix {
		suffix[i] = isrcAlphabet[g.rng.Intn(len(isrcAlphabet))]
	}
	g.mu.Unlock()
	return fmt.Sprintf("US%d%s", g.now().Year(), suffix)
}

// UPC returns a random 12-digit numeric string in [100000000000, 999999999999].
func (g *Generator) UPC() string {
	g.mu.Lock()
	n := 100000000000 + g.rng.Int63n(900000000000)
	g.mu.Unlock()
	return fmt.Sprintf("%d", n)
}
