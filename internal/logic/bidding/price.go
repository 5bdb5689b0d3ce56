package bidding

import (
	"math"
	"math/rand"
	"sync"
)

// MaxBidAmount is the upper bound of generated candidate prices.
const MaxBidAmount = 10.0

// PriceGenerator produces a candidate price for a campaign. It is an explicit
// dependency of the Engine rather than a process-wide random source so tests
// can inject deterministic prices.
type PriceGenerator interface {
	Price() float64
}

// UniformPriceGenerator draws prices uniformly in [0, MaxBidAmount], rounded
// to two decimal places using round-half-up.
type UniformPriceGenerator struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewUniformPriceGenerator creates a generator seeded from src.
func NewUniformPriceGenerator(seed int64) *UniformPriceGenerator {
	return &UniformPriceGenerator{r: rand.New(rand.NewSource(seed))}
}

// Price returns the next random price. Safe for concurrent use.
func (g *UniformPriceGenerator) Price() float64 {
	g.mu.Lock()
	v := g.r.Float64() * MaxBidAmount
	g.mu.Unlock()
	return roundHalfUp(v)
}

// roundHalfUp rounds to two decimal places with ties going up.
func roundHalfUp(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
