package statistics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storage-analysis/internal/prefix"
	"github.com/storage-analysis/internal/schema"
)

func raw(k, v uint64) Measurement {
	return Measurement{KeyLen: k, ValueLen: v, CompressedKeyLen: k / 2, CompressedValueLen: v / 2}
}

func TestResult_ObserveSameItem(t *testing.T) {
	r := NewResult()
	key := prefix.Item("System", schema.Item{Name: "Account"})

	r.Observe(key, raw(10, 20))
	r.Observe(key, raw(5, 5))
	r.Observe(key, raw(10, 20))

	item := r["System"].Items["Account"]
	require.NotNil(t, item)
	assert.Equal(t, uint64(3), item.NumEntries)
	assert.Equal(t, uint64(25), item.KeyLen)
	assert.Equal(t, uint64(45), item.ValueLen)
	assert.Equal(t, uint64(70), r["System"].RawSize)
	assert.Equal(t, uint64(12+22), r["System"].CompressedSize)
}

func TestResult_ObserveBuckets(t *testing.T) {
	r := NewResult()
	r.Observe(prefix.Category("Balances"), raw(16, 4))
	r.Observe(prefix.Unknown(), raw(3, 3))

	require.Contains(t, r, "Balances")
	assert.Contains(t, r["Balances"].Items, UnknownName)
	require.Contains(t, r, UnknownName)
	assert.Contains(t, r[UnknownName].Items, UnknownName)
	assert.Equal(t, uint64(2), r.NumEntries())
}

type observation struct {
	key prefix.CategorizedKey
	m   Measurement
}

func randomObservations(rng *rand.Rand, n int) []observation {
	keys := []prefix.CategorizedKey{
		prefix.Item("System", schema.Item{Name: "Account"}),
		prefix.Item("System", schema.Item{Name: "Events"}),
		prefix.Category("System"),
		prefix.Category("Balances"),
		prefix.Unknown(),
	}
	out := make([]observation, n)
	for i := range out {
		out[i] = observation{
			key: keys[rng.Intn(len(keys))],
			m: Measurement{
				KeyLen:             uint64(rng.Intn(64)),
				CompressedKeyLen:   uint64(rng.Intn(64)),
				ValueLen:           uint64(rng.Intn(512)),
				CompressedValueLen: uint64(rng.Intn(512)),
			},
		}
	}
	return out
}

func TestMergeAll_PartitionIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	obs := randomObservations(rng, 500)

	single := NewResult()
	for _, o := range obs {
		single.Observe(o.key, o.m)
	}

	for workers := 1; workers <= 8; workers++ {
		parts := make([]Result, workers)
		for i := range parts {
			parts[i] = NewResult()
		}
		perm := rng.Perm(len(obs))
		for _, idx := range perm {
			parts[rng.Intn(workers)].Observe(obs[idx].key, obs[idx].m)
		}

		rng.Shuffle(len(parts), func(i, j int) { parts[i], parts[j] = parts[j], parts[i] })
		assert.Equal(t, single, MergeAll(parts...), "workers=%d", workers)
	}
}

func TestMerge_SumsCompressedItemFields(t *testing.T) {
	a := NewResult()
	a.Category("System").Observe("Account", Measurement{KeyLen: 1, CompressedKeyLen: 2, ValueLen: 3, CompressedValueLen: 4})
	b := NewResult()
	b.Category("System").Observe("Account", Measurement{KeyLen: 10, CompressedKeyLen: 20, ValueLen: 30, CompressedValueLen: 40})

	merged := MergeAll(a, b)
	item := merged["System"].Items["Account"]
	assert.Equal(t, uint64(22), item.CompressedKeyLen)
	assert.Equal(t, uint64(44), item.CompressedValueLen)
	assert.Equal(t, uint64(2), item.NumEntries)
}

func TestMerge_DoesNotAlias(t *testing.T) {
	part := NewResult()
	part.Category("System").Observe("Account", raw(1, 1))

	merged := MergeAll(part)
	merged["System"].Observe("Account", raw(1, 1))

	assert.Equal(t, uint64(1), part["System"].Items["Account"].NumEntries)
}

func TestSortedAndTotals(t *testing.T) {
	r := NewResult()
	r.Category("Small").Observe("X", raw(1, 1))
	r.Category("Big").Observe("Y", raw(100, 100))
	r.Category("Big").Observe("Z", raw(200, 200))
	r.Category("Alpha").Observe("X", raw(1, 1))

	sorted := r.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "Big", sorted[0].Name)
	assert.Equal(t, "Alpha", sorted[1].Name)
	assert.Equal(t, "Small", sorted[2].Name)

	items := r["Big"].SortedItems()
	assert.Equal(t, "Z", items[0].Name)
	assert.Equal(t, "Y", items[1].Name)

	tot := r.Totals()
	assert.Equal(t, uint64(604), tot.Size)
	assert.Equal(t, uint64(4), tot.NumKeys)
	assert.Equal(t, uint64(302), tot.KeySize)
	assert.Equal(t, uint64(302), tot.ValueSize)
	assert.Equal(t, uint64(300), tot.CompressedSize)
	assert.Equal(t, tot.CompressedKeySize+tot.CompressedValueSize, tot.CompressedSize)
}
