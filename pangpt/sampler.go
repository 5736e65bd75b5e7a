package pangpt

import "golang.org/x/exp/rand"

// DistributedSampler deterministically shards dataset indices across
// workers. Shards are disjoint, cover the full dataset each epoch, and
// differ in size by at most one. Every rank must derive the same per-epoch
// permutation, so the shuffle is seeded from the shared seed plus the epoch
// rather than from any per-worker state.
type DistributedSampler struct {
	datasetSize int
	rank        int
	worldSize   int
	seed        uint64
}

// NewDistributedSampler creates a sampler for the given rank
func NewDistributedSampler(datasetSize, rank, worldSize int, seed uint64) *DistributedSampler {
	return &DistributedSampler{
		datasetSize: datasetSize,
		rank:        rank,
		worldSize:   worldSize,
		seed:        seed,
	}
}

// Indices returns this rank's shard of dataset indices for the epoch
func (s *DistributedSampler) Indices(epoch int) []int {
	rng := rand.New(rand.NewSource(s.seed + uint64(epoch)))
	perm := rng.Perm(s.datasetSize)

	shard := make([]int, 0, (s.datasetSize+s.worldSize-1)/s.worldSize)
	for i := s.rank; i < len(perm); i += s.worldSize {
		shard = append(shard, perm[i])
	}
	return shard
}

// ShardSize returns the number of indices assigned to this rank
func (s *DistributedSampler) ShardSize() int {
	n := s.datasetSize / s.worldSize
	if s.rank < s.datasetSize%s.worldSize {
		n++
	}
	return n
}
