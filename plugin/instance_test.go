package plugin

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance_TakeOnce(t *testing.T) {
	op := &stubOperation{name: "stub"}
	inst := Own(op, "/plugins/stub")

	assert.Same(t, op, inst.Operation())
	assert.Equal(t, "/plugins/stub", inst.Source())

	taken, ok := inst.Take()
	require.True(t, ok)
	assert.Same(t, op, taken)

	assert.Nil(t, inst.Operation())
	_, ok = inst.Take()
	assert.False(t, ok)
}

func TestInstance_TakeConcurrent(t *testing.T) {
	inst := Own(&stubOperation{name: "stub"}, "stub")

	const numGoroutines = 50
	var (
		wg    sync.WaitGroup
		taken atomic.Int32
	)
	wg.Add(numGoroutines)
	for range numGoroutines {
		go func() {
			defer wg.Done()
			if _, ok := inst.Take(); ok {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), taken.Load())
}

func TestOwn_Nil(t *testing.T) {
	inst := Own(nil, "nothing")
	_, ok := inst.Take()
	assert.False(t, ok)
}
