package pangpt

import "testing"

func TestSamplerShardsAreDisjointAndCovering(t *testing.T) {
	const datasetSize = 103
	const worldSize = 4

	seen := make(map[int]int)
	total := 0
	for rank := 0; rank < worldSize; rank++ {
		s := NewDistributedSampler(datasetSize, rank, worldSize, 42)
		shard := s.Indices(3)
		if len(shard) != s.ShardSize() {
			t.Errorf("Rank %d: expected shard size %d, got %d", rank, s.ShardSize(), len(shard))
		}
		for _, idx := range shard {
			seen[idx]++
		}
		total += len(shard)
	}

	if total != datasetSize {
		t.Errorf("Expected shards to cover %d indices, got %d", datasetSize, total)
	}
	for idx, count := range seen {
		if count != 1 {
			t.Errorf("Index %d appeared %d times across shards", idx, count)
		}
	}
}

func TestSamplerShardSizesBalanced(t *testing.T) {
	const datasetSize = 10
	const worldSize = 3

	sizes := make([]int, worldSize)
	for rank := 0; rank < worldSize; rank++ {
		sizes[rank] = NewDistributedSampler(datasetSize, rank, worldSize, 1).ShardSize()
	}

	// 10 over 3 ranks splits 4/3/3
	if sizes[0] != 4 || sizes[1] != 3 || sizes[2] != 3 {
		t.Errorf("Expected shard sizes [4 3 3], got %v", sizes)
	}
}

func TestSamplerEpochsDiffer(t *testing.T) {
	s := NewDistributedSampler(50, 0, 1, 42)

	a := s.Indices(0)
	b := s.Indices(1)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("Expected different permutations across epochs")
	}
}

func TestSamplerDeterministicPerEpoch(t *testing.T) {
	a := NewDistributedSampler(50, 1, 2, 42).Indices(5)
	b := NewDistributedSampler(50, 1, 2, 42).Indices(5)

	if len(a) != len(b) {
		t.Fatalf("Expected equal shard sizes, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expected identical shards for the same rank, epoch and seed")
		}
	}
}
