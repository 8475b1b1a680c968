package results

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"fieldcat/internal/binning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepository(t *testing.T) {
	repo := NewRepository(5, 10*time.Minute)

	assert.Equal(t, 5, repo.depth)
	assert.Equal(t, 10*time.Minute, repo.ttl)
	assert.Empty(t, repo.Names())
	_, ok := repo.Get("missing")
	assert.False(t, ok)
}

func TestRepository_Merge_Accumulates(t *testing.T) {
	repo := NewRepository(3, 0)

	repo.Merge("crit", binning.Mapping{"a": {1}, "b": {2}}, true)
	merged := repo.Merge("crit", binning.Mapping{"b": {3}, "c": {4}}, false)

	want := binning.Mapping{"a": {1}, "b": {3}, "c": {4}}
	assert.Equal(t, want, merged)
	got, ok := repo.Get("crit")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRepository_Merge_Initialize(t *testing.T) {
	repo := NewRepository(3, 0)

	repo.Merge("crit", binning.Mapping{"a": {1}}, false)
	repo.Merge("crit", binning.Mapping{"b": {2}}, true)

	got, _ := repo.Get("crit")
	assert.Equal(t, binning.Mapping{"b": {2}}, got)
}

func TestRepository_History(t *testing.T) {
	repo := NewRepository(2, 0)

	repo.Merge("p", binning.Mapping{"a": {1}}, true)
	repo.Merge("p", binning.Mapping{"b": {2}}, false)
	repo.Merge("p", binning.Mapping{"c": {3}}, false) // вытеснит первый снимок

	history, ok := repo.History("p")
	require.True(t, ok)
	require.Len(t, history, 2)
	assert.Equal(t, binning.Mapping{"a": {1}, "b": {2}}, history[0].Mapping)
	assert.Equal(t, binning.Mapping{"a": {1}, "b": {2}, "c": {3}}, history[1].Mapping)

	_, ok = repo.History("missing")
	assert.False(t, ok)
}

func TestRepository_ReturnsCopies(t *testing.T) {
	repo := NewRepository(2, 0)
	input := binning.Mapping{"a": {1, 2}}
	repo.Merge("p", input, true)

	input["a"][0] = 100
	got, _ := repo.Get("p")
	got["a"][1] = 200
	got["x"] = nil

	again, _ := repo.Get("p")
	assert.Equal(t, binning.Mapping{"a": {1, 2}}, again)
}

func TestRepository_Names(t *testing.T) {
	repo := NewRepository(1, 0)
	repo.Merge("z_only", binning.Mapping{}, true)
	repo.Merge("mass_z", binning.Mapping{}, true)

	assert.Equal(t, []string{"mass_z", "z_only"}, repo.Names())
}

func TestRepository_ConcurrentMerge(t *testing.T) {
	repo := NewRepository(4, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repo.Merge("shared", binning.Mapping{fmt.Sprintf("k%02d", i): {int64(i)}}, false)
		}(i)
	}
	wg.Wait()

	got, ok := repo.Get("shared")
	require.True(t, ok)
	assert.Len(t, got, 20, "serialized merges keep every key")
}

func TestRepository_Evict(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewRepository(1, time.Minute)
	repo.now = func() time.Time { return now }

	repo.Merge("old", binning.Mapping{}, true)
	now = now.Add(45 * time.Second)
	repo.Merge("fresh", binning.Mapping{}, true)
	now = now.Add(30 * time.Second)

	assert.Equal(t, []string{"old"}, repo.evict())
	assert.Equal(t, []string{"fresh"}, repo.Names())
}

func TestRepository_Evict_Disabled(t *testing.T) {
	now := time.Now()
	repo := NewRepository(1, 0)
	repo.now = func() time.Time { return now }
	repo.Merge("p", binning.Mapping{}, true)
	now = now.Add(24 * time.Hour)

	assert.Empty(t, repo.evict())
	assert.Equal(t, []string{"p"}, repo.Names())
}

func TestRepository_ServeStop(t *testing.T) {
	repo := NewRepository(1, time.Nanosecond)
	repo.cleanInterval = time.Millisecond
	repo.Merge("p", binning.Mapping{}, true)

	stopped := make(chan struct{})
	go func() {
		repo.Serve()
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return len(repo.Names()) == 0 }, time.Second, 5*time.Millisecond)
	repo.Stop()
	repo.Stop()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}
