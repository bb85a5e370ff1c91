package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockExcludesSecondOwner(t *testing.T) {
	d := newTestDB(t)

	acquired, err := d.AcquireLock(WorkerLockName, "worker-a", 30*time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = d.AcquireLock(WorkerLockName, "worker-b", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestAcquireLockOwnerRenews(t *testing.T) {
	d := newTestDB(t)

	for i := 0; i < 3; i++ {
		acquired, err := d.AcquireLock(WorkerLockName, "worker-a", 30*time.Second)
		require.NoError(t, err)
		assert.True(t, acquired, "renewal %d", i)
	}
}

func TestReleaseLockFreesLease(t *testing.T) {
	d := newTestDB(t)

	acquired, err := d.AcquireLock(WorkerLockName, "worker-a", 30*time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, d.ReleaseLock(WorkerLockName, "worker-a"))

	acquired, err = d.AcquireLock(WorkerLockName, "worker-b", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestReleaseLockByNonOwnerIsNoop(t *testing.T) {
	d := newTestDB(t)

	acquired, err := d.AcquireLock(WorkerLockName, "worker-a", 30*time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, d.ReleaseLock(WorkerLockName, "worker-b"))

	acquired, err = d.AcquireLock(WorkerLockName, "worker-b", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)
}

// A crashed worker never releases; its lease must lapse on its own so another
// worker can take over.
func TestAcquireLockReclaimsExpiredLease(t *testing.T) {
	d := newTestDB(t)

	acquired, err := d.AcquireLock(WorkerLockName, "worker-a", time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(10 * time.Millisecond)

	acquired, err = d.AcquireLock(WorkerLockName, "worker-b", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)

	// And the old owner is now locked out.
	acquired, err = d.AcquireLock(WorkerLockName, "worker-a", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)
}
