// FilePath: internal/devicelock/devicelock_test.go
package devicelock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesPerKey(t *testing.T) {
	t.Parallel()
	locker := NewLocalLocker()

	release, err := locker.Acquire(context.Background(), "device:dev_1")
	require.NoError(t, err)

	// An independent key is never blocked.
	otherRelease, err := locker.Acquire(context.Background(), "device:dev_2")
	require.NoError(t, err)
	otherRelease()

	// A second holder of the same key waits; with a deadline it gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "device:dev_1")
	require.Error(t, err)

	release()
	again, err := locker.Acquire(context.Background(), "device:dev_1")
	require.NoError(t, err)
	again()
}

func TestLocalLockerHonorsCancellation(t *testing.T) {
	t.Parallel()
	locker := NewLocalLocker()

	release, err := locker.Acquire(context.Background(), "device:dev_1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "device:dev_1")
	require.Error(t, err)
}
