package parallel

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// TestErrorCollector_FirstRankFailureWins simulates every child rank failing
// its gather at once; exactly one error must survive each round.
func TestErrorCollector_FirstRankFailureWins(t *testing.T) {
	for round := 0; round < 50; round++ {
		var ec ErrorCollector
		var wg sync.WaitGroup
		numGoroutines := 256

		barrier := make(chan struct{})

		wg.Add(numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			go func(id int) {
				defer wg.Done()
				<-barrier
				ec.SetError(fmt.Errorf("rank %d: gather: broken pipe", id))
			}(i)
		}

		close(barrier)
		wg.Wait()

		err := ec.Err()
		if err == nil {
			t.Fatalf("round %d: expected an error, got nil", round)
		}

		if !strings.HasPrefix(err.Error(), "rank ") {
			t.Errorf("round %d: unexpected error format: %v", round, err)
		}
	}
}

// TestErrorCollector_NilIgnored mixes clean exits (nil) with failures.
func TestErrorCollector_NilIgnored(t *testing.T) {
	var ec ErrorCollector
	var wg sync.WaitGroup

	wg.Add(1000)
	barrier := make(chan struct{})

	for i := 0; i < 500; i++ {
		go func() {
			defer wg.Done()
			<-barrier
			ec.SetError(nil)
		}()
	}
	for i := 0; i < 500; i++ {
		go func(id int) {
			defer wg.Done()
			<-barrier
			ec.SetError(fmt.Errorf("real error %d", id))
		}(i)
	}

	close(barrier)
	wg.Wait()

	err := ec.Err()
	if err == nil {
		t.Fatal("expected a real error, got nil")
	}
	if !strings.HasPrefix(err.Error(), "real error ") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestErrorCollector_ZeroValue(t *testing.T) {
	t.Parallel()
	var ec ErrorCollector
	ec.SetError(nil)
	if err := ec.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}
