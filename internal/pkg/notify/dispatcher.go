package notify

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/DanielHaim/PanicDeck/app/models"
)

// Config carries the channel settings the dispatcher needs, fixed at
// construction time
type Config struct {
	BaseURL          string
	PushoverAppToken string
}

// Dispatcher drains an unbounded in-process queue with a single consumer
// and fans each message out to all configured delivery channels. The
// pipeline never blocks on delivery; a failing channel is logged and never
// affects the others. Messages queued at shutdown are delivered before
// Stop returns.
type Dispatcher struct {
	db     *gorm.DB
	cfg    Config
	client *http.Client

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Notification
	running bool
	done    chan struct{}

	// subscribers is swapped out in tests
	subscribers func(projectID uint) ([]models.ProjectSubscriber, error)
}

func NewDispatcher(db *gorm.DB, cfg Config) *Dispatcher {
	d := &Dispatcher{
		db:  db,
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		done: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	d.subscribers = func(projectID uint) ([]models.ProjectSubscriber, error) {
		return models.ProjectSubscribers(d.db, projectID)
	}
	return d
}

// Start launches the consumer goroutine
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	d.running = true
	log.Info("[Notify] Dispatcher started")
	go d.consume()
}

// Enqueue appends a message to the queue and wakes the consumer. Never
// blocks; delivery is network-bound and must not stall the pipeline.
func (d *Dispatcher) Enqueue(n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		log.Warnf("[Notify] Dropping %s notification for report %d, dispatcher not running", n.Status, n.Report.ID)
		return
	}

	d.queue = append(d.queue, n)
	d.cond.Signal()
}

// Stop shuts the consumer down after the queued messages are delivered
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cond.Signal()
	d.mu.Unlock()

	<-d.done
	log.Info("[Notify] Dispatcher stopped")
}

// Pending reports the queue depth, used by tests and the monitor endpoint
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) consume() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && d.running {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && !d.running {
			d.mu.Unlock()
			return
		}
		n := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.deliver(&n)
	}
}

// deliver fans one message out. Channels run concurrently and never block
// on one another; every failure is caught here and isolated.
func (d *Dispatcher) deliver(n *Notification) {
	reportURL := d.reportURL(n)

	subscribers, err := d.subscribers(n.Project.ID)
	if err != nil {
		log.Errorf("[Notify] Subscriber lookup for project %d failed: %v", n.Project.ID, err)
		subscribers = nil
	}

	var wg sync.WaitGroup

	for _, subscriber := range subscribers {
		subscriber := subscriber

		if subscriber.Setting.NotifyEmail {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := d.sendEmail(n, &subscriber.User, reportURL); err != nil {
					log.Errorf("[Notify] Email to %s failed: %v", subscriber.User.Email, err)
				}
			}()
		}

		if subscriber.Setting.NotifyPushover && subscriber.User.HasPushoverKey() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := d.sendPushover(n, &subscriber.User, reportURL); err != nil {
					log.Errorf("[Notify] Pushover to user %d failed: %v", subscriber.User.ID, err)
				}
			}()
		}
	}

	channels := []struct {
		name string
		send func(*Notification, string) error
	}{
		{"slack bot", d.sendSlackBot},
		{"slack webhook", d.sendSlackWebhook},
		{"teams webhook", d.sendTeamsWebhook},
		{"webhook", d.sendWebhook},
	}

	for _, ch := range channels {
		ch := ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ch.send(n, reportURL); err != nil {
				log.Errorf("[Notify] %s for report %d failed: %v", ch.name, n.Report.ID, err)
			}
		}()
	}

	wg.Wait()
}

func (d *Dispatcher) reportURL(n *Notification) string {
	return fmt.Sprintf("%s/view-report/%d", d.cfg.BaseURL, n.Report.ID)
}
