package proxy

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// Strategy names the selection algorithm a Balancer uses (spec.md §4.4).
type Strategy string

const (
	RoundRobin         Strategy = "round-robin"
	LeastConnections   Strategy = "least-connections"
	IPHash             Strategy = "ip-hash"
	WeightedRoundRobin Strategy = "weighted-round-robin"
)

// Balancer selects among a fixed upstream set per a configured Strategy.
type Balancer struct {
	strategy  Strategy
	upstreams []*Upstream

	mu      sync.Mutex
	rrIndex uint64
}

// NewBalancer builds a Balancer over upstreams using strategy.
func NewBalancer(strategy Strategy, upstreams []*Upstream) *Balancer {
	return &Balancer{strategy: strategy, upstreams: upstreams}
}

// healthy returns the subset of upstreams currently passing health checks
// and carrying a positive weight.
func (b *Balancer) healthy() []*Upstream {
	var out []*Upstream
	for _, u := range b.upstreams {
		if u.Healthy() && u.Weight > 0 {
			out = append(out, u)
		}
	}
	return out
}

// Select picks an upstream for clientIP per the configured strategy. It
// returns nil when no upstream is currently healthy — the caller must
// respond 502 in that case (spec.md §4.4).
func (b *Balancer) Select(clientIP string) *Upstream {
	pool := b.healthy()
	if len(pool) == 0 {
		return nil
	}

	switch b.strategy {
	case LeastConnections:
		return b.selectLeastConnections(pool)
	case IPHash:
		return b.selectIPHash(pool, clientIP)
	case WeightedRoundRobin:
		return b.selectWeightedRoundRobin(pool)
	default:
		return b.selectRoundRobin(pool)
	}
}

func (b *Balancer) selectRoundRobin(pool []*Upstream) *Upstream {
	idx := atomic.AddUint64(&b.rrIndex, 1) - 1
	return pool[int(idx)%len(pool)]
}

func (b *Balancer) selectLeastConnections(pool []*Upstream) *Upstream {
	best := pool[0]
	bestConns := best.ActiveConnections()
	for _, u := range pool[1:] {
		if c := u.ActiveConnections(); c < bestConns {
			best, bestConns = u, c
		}
	}
	return best
}

func (b *Balancer) selectIPHash(pool []*Upstream, clientIP string) *Upstream {
	sum := sha256.Sum256([]byte(clientIP))
	idx := binary.BigEndian.Uint32(sum[:4])
	return pool[int(idx)%len(pool)]
}

// selectWeightedRoundRobin uses cumulative weighted selection: a counter
// advances by 1 each call and is mapped onto the cumulative weight space,
// so upstreams appear in proportion to their configured weight over many
// calls without needing real randomness.
func (b *Balancer) selectWeightedRoundRobin(pool []*Upstream) *Upstream {
	total := 0
	for _, u := range pool {
		total += u.Weight
	}
	if total == 0 {
		return pool[0]
	}

	idx := atomic.AddUint64(&b.rrIndex, 1) - 1
	target := int(idx%uint64(total)) + 1

	cumulative := 0
	for _, u := range pool {
		cumulative += u.Weight
		if target <= cumulative {
			return u
		}
	}
	return pool[len(pool)-1]
}
