package stats

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	c := NewCounter(4)
	c.Add(10)
	c.Add(0)
	c.Fail()
	c.Add(5)

	s := c.Summary()
	if s.Found != 4 || s.Succeeded != 2 || s.Empty != 1 || s.Failed != 1 || s.Points != 15 {
		t.Errorf("unexpected summary %#v", s)
	}
	if !strings.HasPrefix(s.String(), "4 found, 2 succeeded, 1 empty, 1 failed, 15 points") {
		t.Error(s.String())
	}
}

func TestCounterConcurrent(t *testing.T) {
	c := NewCounter(100)
	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				c.Fail()
				return
			}
			c.Add(int64(i))
		}(i)
	}
	wg.Wait()

	s := c.Summary()
	if s.Failed != 10 || s.Succeeded != 90 {
		t.Errorf("unexpected summary %#v", s)
	}
	// sum of 0..99 without multiples of 10
	if s.Points != 4950-450 {
		t.Error(s.Points)
	}
}

func TestRps(t *testing.T) {
	s := Summary{Points: 100, Duration: 2 * time.Second}
	if s.Rps() != 50 {
		t.Error(s.Rps())
	}
	if (Summary{Points: 100}).Rps() != 0 {
		t.Error("expected zero rps without duration")
	}
}
