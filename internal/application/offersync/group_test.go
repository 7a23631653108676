package offersync_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stocksync/internal/application/offersync"
)

func TestGroup_FinalRunsOnceWithAllResults(t *testing.T) {
	var (
		calls atomic.Int32
		got   []int
	)
	g := offersync.NewGroup(3, func(rs []int) {
		calls.Add(1)
		got = rs
	})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.True(t, g.Report([]int{i, i * 10}))
		}(i)
	}
	wg.Wait()
	<-g.Done()

	assert.Equal(t, int32(1), calls.Load())
	assert.ElementsMatch(t, []int{0, 0, 1, 10, 2, 20}, got)
	assert.False(t, g.Report([]int{99}), "reportes extra se ignoran")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGroup_ZeroExpectedFinishesImmediately(t *testing.T) {
	var called bool
	g := offersync.NewGroup(0, func(rs []string) {
		called = true
		assert.Empty(t, rs)
	})
	<-g.Done()
	assert.True(t, called)
}

func TestGroup_NotDoneUntilLastReport(t *testing.T) {
	g := offersync.NewGroup[int](2, nil)
	g.Report(nil)
	select {
	case <-g.Done():
		t.Fatal("la barrera no debe cerrarse con reportes pendientes")
	default:
	}
	g.Report(nil)
	<-g.Done()
}
