// internal/notifier/dispatcher.go
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/annolab/annolab/internal/config"
	"github.com/annolab/annolab/internal/engine"
	"github.com/annolab/annolab/internal/models"
	"github.com/annolab/annolab/internal/queue"
)

const templateCachePrefix = "tmpl:"

// TaskSource resolves tasks for notification delivery.
type TaskSource interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
}

// UserSource resolves recipient contact records from the identity store.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]*models.User, error)
}

// TemplateSource resolves a project's notification templates.
type TemplateSource interface {
	ListTemplates(ctx context.Context, projectID string) ([]*models.NotificationTemplate, error)
}

// Sender is the external mail transport.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Cache is a TTL byte cache for template lookups; Get returns nil on a miss.
type Cache interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Dispatcher resolves notification templates and delivers mail for queued
// notification requests. Delivery failures are logged and never escalate:
// the lifecycle transition that queued the request has already committed.
type Dispatcher struct {
	cfg          *config.Config
	tasks        TaskSource
	users        UserSource
	templates    TemplateSource
	cache        Cache
	sender       Sender
	queue        *queue.RabbitMQ
	workerPool   chan struct{}
	workers      sync.WaitGroup
	stopChan     chan struct{}
	isShutdown   bool
	shutdownLock sync.RWMutex
}

func NewDispatcher(cfg *config.Config, tasks TaskSource, users UserSource, templates TemplateSource, cache Cache, sender Sender, q *queue.RabbitMQ) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		tasks:      tasks,
		users:      users,
		templates:  templates,
		cache:      cache,
		sender:     sender,
		queue:      q,
		workerPool: make(chan struct{}, cfg.Worker.MaxWorkers),
		stopChan:   make(chan struct{}),
	}
}

// Start begins consuming notification requests from the queue.
func (d *Dispatcher) Start(ctx context.Context) error {
	log.Printf("Starting notification dispatcher with %d workers", d.cfg.Worker.MaxWorkers)

	requests, err := d.queue.ConsumeNotifications(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming notifications: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stopChan:
			return nil
		case delivery, ok := <-requests:
			if !ok {
				return fmt.Errorf("notifications channel closed")
			}

			var req models.NotificationRequest
			if err := json.Unmarshal(delivery.Body, &req); err != nil {
				log.Printf("Error decoding notification request: %v", err)
				delivery.Nack(false, false) // Don't requeue malformed messages
				continue
			}

			// Try to acquire worker slot
			select {
			case d.workerPool <- struct{}{}:
				d.workers.Add(1)
				go func(req models.NotificationRequest) {
					defer func() {
						<-d.workerPool // Release worker slot
						d.workers.Done()
					}()

					if err := d.process(ctx, &req); err != nil {
						log.Printf("Error dispatching %q notification: %v", req.Trigger, err)
					}

					// Delivery is at-most-once: a failed send is logged, not
					// retried, so a transition never produces duplicate mail.
					delivery.Ack(false)
				}(req)
			default:
				// Worker pool full, nack with requeue
				delivery.Nack(false, true)
			}
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, req *models.NotificationRequest) error {
	if len(req.Recipients) > 0 {
		return d.NotifyMany(ctx, req.Recipients, req.ProjectID)
	}
	return d.Notify(ctx, req.TaskID, req.Trigger)
}

// Notify resolves the active template for the trigger and mails the task's
// annotator. A missing task, project link, or annotator address is an
// error; a missing template is a logged no-op. A transport failure is
// logged and swallowed here, at the dispatch boundary.
func (d *Dispatcher) Notify(ctx context.Context, taskID, trigger string) error {
	task, err := d.tasks.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("%w: task %s", engine.ErrNotFound, taskID)
	}
	if task.ProjectID == "" {
		return fmt.Errorf("%w: task %s has no project", engine.ErrNotFound, taskID)
	}
	if task.Annotator == nil {
		return fmt.Errorf("%w: task %s has no annotator", engine.ErrNotFound, taskID)
	}

	annotator, err := d.users.GetUser(ctx, *task.Annotator)
	if err != nil {
		return fmt.Errorf("failed to resolve annotator: %w", err)
	}
	if annotator == nil || annotator.Email == "" {
		return fmt.Errorf("%w: annotator email for task %s", engine.ErrNotFound, taskID)
	}

	tmpl, err := d.activeTemplate(ctx, task.ProjectID, trigger)
	if err != nil {
		return err
	}
	if tmpl == nil {
		log.Printf("No active template found for the %q trigger in project %s", trigger, task.ProjectID)
		return nil
	}

	subject := fmt.Sprintf("Task %s Notification", trigger)
	if err := d.send(ctx, annotator.Email, subject, tmpl.TriggerBody); err != nil {
		log.Printf("Error sending %q notification to %s: %v", trigger, annotator.Email, err)
		return nil
	}

	log.Printf("Notification email sent to %s for task %s", annotator.Email, trigger)
	return nil
}

// NotifyMany sends the project's active "custom" template to each recipient
// independently. A recipient with no address is logged and skipped.
func (d *Dispatcher) NotifyMany(ctx context.Context, recipientIDs []string, projectID string) error {
	tmpl, err := d.activeTemplate(ctx, projectID, models.TriggerCustom)
	if err != nil {
		return err
	}
	if tmpl == nil {
		log.Printf("No active template found for the %q trigger in project %s", models.TriggerCustom, projectID)
		return nil
	}

	users, err := d.users.GetUsers(ctx, recipientIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve recipients: %w", err)
	}

	for _, user := range users {
		if user.Email == "" {
			log.Printf("No email found for user %s, skipping", user.ID)
			continue
		}

		if err := d.send(ctx, user.Email, "Custom Email", tmpl.TriggerBody); err != nil {
			log.Printf("Error sending custom notification to %s: %v", user.Email, err)
			continue
		}

		log.Printf("Notification email sent to %s", user.Email)
	}

	return nil
}

// send bounds the transport call with the configured timeout; expiry is a
// loggable failure, never fatal to the batch.
func (d *Dispatcher) send(ctx context.Context, to, subject, html string) error {
	sendCtx, cancel := context.WithTimeout(ctx, time.Duration(d.cfg.Worker.SendTimeout)*time.Second)
	defer cancel()

	return d.sender.Send(sendCtx, to, subject, html)
}

// activeTemplate resolves the project's templates through the TTL cache and
// picks the active one matching the trigger, if any.
func (d *Dispatcher) activeTemplate(ctx context.Context, projectID, trigger string) (*models.NotificationTemplate, error) {
	templates, err := d.projectTemplates(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: project %s: %v", engine.ErrConfig, projectID, err)
	}

	for _, tmpl := range templates {
		if tmpl.TriggerName == trigger && tmpl.Active {
			return tmpl, nil
		}
	}

	return nil, nil
}

func (d *Dispatcher) projectTemplates(ctx context.Context, projectID string) ([]*models.NotificationTemplate, error) {
	cacheKey := templateCachePrefix + projectID

	if d.cache != nil {
		cachedData, err := d.cache.Get(cacheKey)
		if err == nil && cachedData != nil {
			var templates []*models.NotificationTemplate
			if err := json.Unmarshal(cachedData, &templates); err == nil {
				return templates, nil
			}
			log.Printf("Warning: failed to unmarshal cached templates: %v", err)
		}
	}

	templates, err := d.templates.ListTemplates(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		if data, err := json.Marshal(templates); err == nil {
			if err := d.cache.Put(cacheKey, data); err != nil {
				log.Printf("Warning: failed to cache templates for project %s: %v", projectID, err)
			}
		}
	}

	return templates, nil
}

// Shutdown initiates a graceful shutdown of the dispatcher.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.shutdownLock.Lock()
	d.isShutdown = true
	d.shutdownLock.Unlock()

	// Signal main loop to stop
	close(d.stopChan)

	// Wait for in-flight deliveries with timeout
	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timed out after %v", timeout)
	}
}

// IsShutdown returns the current shutdown status
func (d *Dispatcher) IsShutdown() bool {
	d.shutdownLock.RLock()
	defer d.shutdownLock.RUnlock()
	return d.isShutdown
}
