package worker

import (
	"context"
	"log"
	"time"

	"github.com/podforge/podforge/internal/job"
	"github.com/podforge/podforge/internal/queue"
)

// Worker pulls queued generation tasks and hands them to the job manager.
// Because the manager already owns job state and concurrency, the worker's
// only responsibility is dispatch.
type Worker struct {
	queue   *queue.Queue
	manager *job.Manager
}

func New(q *queue.Queue, m *job.Manager) *Worker {
	return &Worker{queue: q, manager: m}
}

// Start begins processing tasks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			task, err := w.queue.Dequeue(ctx, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing: %v", err)
				continue
			}

			if task == nil {
				continue // No task available, retry
			}

			log.Printf("Processing job %s", task.JobID)
			if err := w.manager.Start(task.JobID); err != nil {
				log.Printf("Job %s dispatch failed: %v", task.JobID, err)
			}
		}
	}
}
