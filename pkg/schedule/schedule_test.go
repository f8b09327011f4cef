package schedule

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunAndStop(t *testing.T) {
	runner := NewRunner()

	done := make(chan bool, 1)
	go func() {
		runner.Run()
		done <- true
	}()

	runner.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Runner is still running")
	}
}

func TestNowTasks(t *testing.T) {
	runner := NewRunner()

	go runner.Run()
	defer runner.Stop()

	var counter atomic.Int32

	runner.Now(func() {
		counter.Add(1)

		runner.Now(func() {
			counter.Add(2)
		})
	})

	<-time.After(100 * time.Millisecond)

	assert.Equal(t, int32(3), counter.Load())
}

func TestAtOrdering(t *testing.T) {
	runner := NewRunner()

	done := make(chan bool, 1)
	go func() {
		runner.Run()
		done <- true
	}()
	defer runner.Stop()

	now := time.Now()

	var mutex sync.Mutex
	var order []int
	var timepoints []time.Time

	for i := range 4 {
		due := now.Add(time.Duration(i) * 200 * time.Millisecond)
		runner.At(func() {
			mutex.Lock()
			defer mutex.Unlock()
			order = append(order, i)
			timepoints = append(timepoints, time.Now())

			if i == 3 {
				runner.Stop()
			}
		}, due)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Errorf("Runner is still running")
	}

	mutex.Lock()
	defer mutex.Unlock()

	assert.Equal(t, []int{0, 1, 2, 3}, order)

	for i := range 4 {
		due := now.Add(time.Duration(i) * 200 * time.Millisecond)
		assert.True(t, timepoints[i].Sub(due).Abs() < 100*time.Millisecond)
	}
}
