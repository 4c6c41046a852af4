package requestlog

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Service provides an async resolution log writer.
// Emit performs a non-blocking channel send (drops on overflow).
// A background goroutine flushes batches to the Repo.
type Service struct {
	repo      *Repo
	queue     chan LogRow
	batchSize int
	interval  time.Duration

	enabled atomic.Bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// ServiceConfig configures the resolution log service.
type ServiceConfig struct {
	Repo          *Repo
	QueueSize     int
	FlushBatch    int
	FlushInterval time.Duration
}

// NewService creates a new resolution log service.
func NewService(cfg ServiceConfig) *Service {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 8192
	}
	batchSize := cfg.FlushBatch
	if batchSize <= 0 {
		batchSize = 2048
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Service{
		repo:      cfg.Repo,
		queue:     make(chan LogRow, queueSize),
		batchSize: batchSize,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
	s.enabled.Store(true)
	return s
}

// SetEnabled toggles log intake. Disabled intake drops rows silently.
func (s *Service) SetEnabled(on bool) {
	s.enabled.Store(on)
}

// Start launches the background flush goroutine.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.flushLoop()
}

// Stop signals the flush loop to stop, drains remaining rows, and returns.
func (s *Service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Emit enqueues a log row. Non-blocking; drops on overflow.
func (s *Service) Emit(row LogRow) {
	if !s.enabled.Load() {
		return
	}
	select {
	case s.queue <- row:
	default:
		// Queue full, drop row to avoid blocking the hot path.
	}
}

// flushLoop runs until stopCh is closed, flushing on batch-size or timer.
func (s *Service) flushLoop() {
	defer s.wg.Done()

	batch := make([]LogRow, 0, s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case row := <-s.queue:
			batch = append(batch, row)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}

		case <-s.stopCh:
			// Drain remaining.
			s.drainAndFlush(batch)
			return
		}
	}
}

func (s *Service) drainAndFlush(batch []LogRow) {
	for {
		select {
		case row := <-s.queue:
			batch = append(batch, row)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

func (s *Service) flush(rows []LogRow) {
	if n, err := s.repo.InsertBatch(rows); err != nil {
		log.Printf("[requestlog] flush %d rows failed: %v", len(rows), err)
	} else if n > 0 {
		log.Printf("[requestlog] flushed %d rows", n)
	}
}

// Repo returns the underlying repository for query access.
func (s *Service) Repo() *Repo {
	return s.repo
}
