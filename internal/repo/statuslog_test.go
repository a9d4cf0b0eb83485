package repo

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLogWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "system-status.txt")
	log := NewStatusLog(path)

	require.NoError(t, log.Append("\n[t1] AUTO-FIX APPLIED: fix_code triggered. a"))
	require.NoError(t, log.Append("\n[t2] AUTO-FIX APPLIED: optimize_performance triggered. b"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "System Status Log:\n\n[t1] AUTO-FIX APPLIED: fix_code triggered. a\n[t2] AUTO-FIX APPLIED: optimize_performance triggered. b", string(data))
}

func TestStatusLogKeepsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system-status.txt")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o644))

	require.NoError(t, NewStatusLog(path).Append("\nnext"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\nnext", string(data))
}

func TestStatusLogConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system-status.txt")
	log := NewStatusLog(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, log.Append("\nentry"))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(StatusLogHeader)+20*len("\nentry"), len(data))
}
