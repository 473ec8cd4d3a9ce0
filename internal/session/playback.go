package session

import (
	"sync"
	"time"
)

// playback is the cancellable handle of a running time-lapse.
type playback struct {
	stop chan struct{}
	once sync.Once
}

// startPlayback runs tick every interval until cancelled. The goroutine is
// tracked on wg.
func startPlayback(wg *sync.WaitGroup, interval time.Duration, gen uint64, tick func(gen uint64)) *playback {
	p := &playback{
		stop: make(chan struct{}),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				// select picks randomly when both are ready
				select {
				case <-p.stop:
					return
				default:
				}
				tick(gen)
			}
		}
	}()

	return p
}

func (p *playback) cancel() {
	p.once.Do(func() { close(p.stop) })
}
