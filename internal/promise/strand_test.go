package promise

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrandSerializesPosts(t *testing.T) {
	s := NewStrand(InlineExecutor{})
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := make(chan struct{})
			s.Post(func() {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()
				mu.Lock()
				inFlight--
				mu.Unlock()
				close(done)
			})
			<-done
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInFlight)
}
