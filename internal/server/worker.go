// ABOUTME: Shared worker pool for CPU-bound window analysis
// ABOUTME: Keeps tempo/key estimation off the connection goroutines
package server

import (
	"log"
	"sync"

	"github.com/keyscope/keyscope-go/internal/protocol"
	"github.com/keyscope/keyscope-go/pkg/analysis"
	"github.com/keyscope/keyscope-go/pkg/audio"
	"github.com/keyscope/keyscope-go/pkg/audio/decode"
)

type job struct {
	window []byte
	result chan protocol.StreamResult
}

// Pool runs window analysis on a fixed set of workers. Submitted windows
// are owned by the pool, so sessions keep accumulating the next window
// while the previous one is analyzed.
type Pool struct {
	jobs     chan job
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPool starts a pool with the given number of workers.
func NewPool(workers int) *Pool {
	p := &Pool{
		jobs: make(chan job),
		done: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case j := <-p.jobs:
					j.result <- runAnalysis(j.window)
				case <-p.done:
					return
				}
			}
		}()
	}
	return p
}

// Submit queues a window for analysis. The returned channel yields exactly
// one result. Blocks while all workers are busy, which backpressures
// sessions that outpace the pool. Sessions may outlive the pool during
// shutdown; submitting to a stopped pool yields an Error result.
func (p *Pool) Submit(window []byte) <-chan protocol.StreamResult {
	result := make(chan protocol.StreamResult, 1)
	select {
	case p.jobs <- job{window: window, result: result}:
	case <-p.done:
		result <- protocol.ErrorResult()
	}
	return result
}

// Stop releases the workers after in-flight analysis finishes. Safe to
// call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// runAnalysis decodes one window and runs both estimators. Every failure
// mode, panics included, collapses to an Error result so the session
// keeps buffering.
func runAnalysis(window []byte) (res protocol.StreamResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Analysis panic recovered: %v", r)
			res = protocol.ErrorResult()
		}
	}()

	frame, err := decode.PCM(window, audio.StreamSampleRate, audio.StreamChannels)
	if err != nil {
		log.Printf("Window decode failed: %v", err)
		return protocol.ErrorResult()
	}

	bpm, err := analysis.EstimateBPM(frame)
	if err != nil {
		log.Printf("Tempo estimation failed: %v", err)
		return protocol.ErrorResult()
	}

	key, err := analysis.EstimateKey(frame)
	if err != nil {
		log.Printf("Key estimation failed: %v", err)
		return protocol.ErrorResult()
	}

	return protocol.DetectedResult(bpm, key)
}
