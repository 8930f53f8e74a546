package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/models"
)

var (
	ErrQueueFull = errors.New("mail queue is full")
	ErrStopped   = errors.New("mail dispatcher stopped")
)

type Sender interface {
	Send(to, subject, body string) error
}

// Dispatcher sends messages in the background with a fixed pool of workers.
// It is the in-process alternative to publishing on RabbitMQ.
type Dispatcher struct {
	log     *slog.Logger
	sender  Sender
	workers int

	queue chan models.Message
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(log *slog.Logger, sender Sender, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}

	return &Dispatcher{
		log:     log,
		sender:  sender,
		workers: workers,
		queue:   make(chan models.Message, buffer),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop rejects new messages, drains the queue and waits for the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// SendMessage enqueues msg without blocking.
func (d *Dispatcher) SendMessage(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	log := d.log.With(slog.Int("worker", id))

	for msg := range d.queue {
		if err := d.sender.Send(msg.Email, msg.Subject, msg.Body); err != nil {
			log.Error("failed to send mail",
				slog.String("purpose", msg.Purpose),
				sl.Err(err),
			)
			continue
		}

		log.Debug("mail sent", slog.String("purpose", msg.Purpose))
	}
}
