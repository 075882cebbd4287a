package maintenance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codemate/codemate/internal/collab"
	"github.com/codemate/codemate/internal/workspace"
)

func cachedRoom(cache *collab.Cache, roomID string) workspace.Workspace {
	ws := workspace.New()
	file := workspace.NewFile("main.py", "print(1)")
	ws.Files[file.ID] = file
	ws.ActiveFileID = file.ID
	cache.Put(roomID, ws)
	return ws
}

func TestRunOnceKeepsOccupiedRooms(t *testing.T) {
	registry := collab.NewRegistry()
	cache := collab.NewCache()

	registry.Register("s1", "ada")
	registry.Assign("s1", "r1")
	cachedRoom(cache, "r1")

	sweeper := NewSweeper(registry, cache, WithExpireEmpty(true))
	require.NoError(t, sweeper.RunOnce())

	_, ok := cache.Get("r1")
	require.True(t, ok)
}

func TestRunOnceExpiresEmptyRooms(t *testing.T) {
	registry := collab.NewRegistry()
	cache := collab.NewCache()

	cachedRoom(cache, "abandoned")

	sweeper := NewSweeper(registry, cache, WithExpireEmpty(true))
	require.NoError(t, sweeper.RunOnce())

	_, ok := cache.Get("abandoned")
	require.False(t, ok)
}

func TestRunOnceDefaultKeepsEmptyRooms(t *testing.T) {
	registry := collab.NewRegistry()
	cache := collab.NewCache()

	cachedRoom(cache, "abandoned")

	sweeper := NewSweeper(registry, cache)
	require.NoError(t, sweeper.RunOnce())

	// Without expiry enabled the stale workspace stays put indefinitely.
	_, ok := cache.Get("abandoned")
	require.True(t, ok)
}

func TestRunOnceFlagsInvalidWorkspaces(t *testing.T) {
	registry := collab.NewRegistry()
	cache := collab.NewCache()

	cache.Put("r1", workspace.Workspace{ActiveFileID: "dangling"})

	sweeper := NewSweeper(registry, cache)
	require.Error(t, sweeper.RunOnce())
}

func TestRunOnceWithNilDependencies(t *testing.T) {
	sweeper := NewSweeper(nil, nil)
	require.NoError(t, sweeper.RunOnce())
	require.NoError(t, sweeper.Start())
}
