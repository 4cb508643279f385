package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupArena(t *testing.T) {
	t.Run("add and get", func(t *testing.T) {
		arena := NewGroupArena()
		i := arena.Add(&StyleGroup{Name: "a"})
		j := arena.Add(&StyleGroup{Name: "b"})

		assert.Equal(t, 0, i)
		assert.Equal(t, 1, j)
		assert.Equal(t, "a", arena.Get(i).Name)
		assert.Nil(t, arena.Get(99))
		assert.Nil(t, arena.Get(-1))
	})

	t.Run("remove leaves stable indices", func(t *testing.T) {
		arena := NewGroupArena()
		arena.Add(&StyleGroup{Name: "a"})
		arena.Add(&StyleGroup{Name: "b"})
		arena.Add(&StyleGroup{Name: "c"})

		arena.Remove(1)

		assert.Nil(t, arena.Get(1))
		assert.Equal(t, []int{0, 2}, arena.Alive())
		assert.Equal(t, "c", arena.Get(2).Name, "later indices unaffected by removal")
	})

	t.Run("merge concatenates rows and unions patterns", func(t *testing.T) {
		arena := NewGroupArena()
		dst := arena.Add(&StyleGroup{
			Name: "dst", Rows: []int{0, 1},
			Patterns: []ContestPattern{"10"}, Pattern: "10", RareDerived: true,
		})
		src := arena.Add(&StyleGroup{
			Name: "src", Rows: []int{2},
			Patterns: []ContestPattern{"01"}, Pattern: "01", RareDerived: true,
		})

		arena.Merge(dst, src)

		g := arena.Get(dst)
		require.NotNil(t, g)
		assert.Equal(t, []int{0, 1, 2}, g.Rows)
		assert.Equal(t, ContestPattern("11"), g.Pattern)
		assert.Equal(t, []ContestPattern{"10", "01"}, g.Patterns)
		assert.Nil(t, arena.Get(src), "source group is consumed")
	})

	t.Run("merge propagates rare-derived flag", func(t *testing.T) {
		arena := NewGroupArena()
		dst := arena.Add(&StyleGroup{Pattern: "10", Patterns: []ContestPattern{"10"}})
		src := arena.Add(&StyleGroup{Pattern: "10", Patterns: []ContestPattern{"10"}, RareDerived: true})

		arena.Merge(dst, src)

		assert.True(t, arena.Get(dst).RareDerived)
	})

	t.Run("merge with self or dead group is a no-op", func(t *testing.T) {
		arena := NewGroupArena()
		i := arena.Add(&StyleGroup{Rows: []int{0}, Patterns: []ContestPattern{"1"}, Pattern: "1"})

		arena.Merge(i, i)
		arena.Merge(i, 5)

		assert.Equal(t, []int{0}, arena.Get(i).Rows)
	})
}
