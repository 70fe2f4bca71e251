// Package scheduler runs a BatchProcessor on a fixed interval behind a
// small start/stop control surface.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BatchProcessor does the periodic work.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) error
}

// Service exposes the scheduler controls. Start and Stop are synchronous;
// IsRunning reports whether ticks are currently accepted. Close stops the
// control loop for good.
type Service interface {
	Start() error
	Stop() error
	IsRunning() bool
	Close() error
}

const (
	DefaultInterval     = 2 * time.Minute
	DefaultBatchTimeout = 30 * time.Second

	controlTimeout = 2 * time.Second
)

var ErrClosed = errors.New("scheduler closed")

type controlOp int

const (
	opStart controlOp = iota
	opStop
	opStatus
)

type controlMsg struct {
	op   controlOp
	resp chan bool
}

// scheduler keeps all mutable state inside the loop goroutine.
type scheduler struct {
	processor    BatchProcessor
	interval     time.Duration
	batchTimeout time.Duration
	logger       *logrus.Logger

	ctrl      chan controlMsg
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts the control loop. Non-positive durations fall back to the
// defaults. The scheduler is idle until Start is called.
func New(processor BatchProcessor, interval, batchTimeout time.Duration, logger *logrus.Logger) Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	s := &scheduler{
		processor:    processor,
		interval:     interval,
		batchTimeout: batchTimeout,
		logger:       logger,
		ctrl:         make(chan controlMsg),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *scheduler) Start() error {
	_, err := s.send(opStart)
	return err
}

// Stop stops accepting ticks. A batch in flight is waited for.
func (s *scheduler) Stop() error {
	_, err := s.send(opStop)
	return err
}

func (s *scheduler) IsRunning() bool {
	running, err := s.send(opStatus)
	return err == nil && running
}

// Close stops the scheduler, waits for the current batch and ends the loop.
func (s *scheduler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if stopErr := s.Stop(); stopErr != nil && !errors.Is(stopErr, ErrClosed) {
			err = stopErr
		}
		close(s.quit)
		<-s.done
	})
	return err
}

func (s *scheduler) send(op controlOp) (bool, error) {
	msg := controlMsg{op: op, resp: make(chan bool, 1)}

	select {
	case s.ctrl <- msg:
	case <-s.done:
		return false, ErrClosed
	case <-time.After(controlTimeout):
		return false, errors.New("scheduler: control loop not responding")
	}

	// A stop is acknowledged only after the running batch completes, which
	// may take up to the batch timeout.
	wait := controlTimeout
	if op == opStop {
		wait += s.batchTimeout
	}
	select {
	case v := <-msg.resp:
		return v, nil
	case <-time.After(wait):
		return false, errors.New("scheduler: acknowledgement timeout")
	}
}

func (s *scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	running := false
	batchDone := make(chan error, 1)
	inBatch := false
	var pendingStop []chan bool

	for {
		select {
		case <-s.quit:
			if inBatch {
				<-batchDone
			}
			return

		case msg := <-s.ctrl:
			switch msg.op {
			case opStart:
				if !running {
					s.logger.WithFields(logrus.Fields{
						"interval":      s.interval,
						"batch_timeout": s.batchTimeout,
					}).Info("scheduler started")
				}
				running = true
				msg.resp <- true

			case opStop:
				if running {
					s.logger.Info("scheduler stopping")
				}
				running = false
				if inBatch {
					pendingStop = append(pendingStop, msg.resp)
				} else {
					msg.resp <- true
				}

			case opStatus:
				msg.resp <- running
			}

		case <-ticker.C:
			if !running || inBatch {
				continue
			}
			inBatch = true
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), s.batchTimeout)
				defer cancel()
				batchDone <- s.processor.ProcessBatch(ctx)
			}()

		case err := <-batchDone:
			inBatch = false
			if err != nil {
				s.logger.WithError(err).Error("scheduled batch failed")
			} else {
				s.logger.Debug("scheduled batch completed")
			}
			for _, resp := range pendingStop {
				resp <- true
			}
			pendingStop = nil
		}
	}
}
