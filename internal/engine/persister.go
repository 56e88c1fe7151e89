package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/foodstand/internal/store"
)

// persistJob is one whole-document write, or a flush barrier when done is
// set.
type persistJob struct {
	seq  int64
	data []byte
	done chan error
}

// persister writes snapshots to the remote ledger in the order they were
// taken, one at a time. Writes are never retried and never cancelled once
// issued.
type persister struct {
	ledger   store.Ledger
	path     string
	clientID string
	status   *StatusBoard
	notify   func()

	queue   *fifo[persistJob]
	stopped chan struct{}

	mu       sync.Mutex
	lastErr  error
	revision int64
}

func newPersister(l store.Ledger, path, clientID string, status *StatusBoard, notify func()) *persister {
	p := &persister{
		ledger:   l,
		path:     path,
		clientID: clientID,
		status:   status,
		notify:   notify,
		queue:    newFIFO[persistJob](),
		stopped:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) enqueue(job persistJob) bool {
	return p.queue.Enqueue(job)
}

func (p *persister) run() {
	defer close(p.stopped)

	for {
		job, ok := p.queue.TryDequeue()
		if ok {
			p.handle(job)
			continue
		}
		if p.queue.Closed() {
			return
		}
		<-p.queue.Wait()
	}
}

func (p *persister) handle(job persistJob) {
	if job.done != nil {
		p.mu.Lock()
		err := p.lastErr
		p.lastErr = nil
		p.mu.Unlock()
		job.done <- err
		return
	}

	// Issued writes outlive the caller's context.
	rev, err := p.ledger.Set(context.Background(), p.path, job.data)
	if err != nil {
		slog.Error("persist failed",
			"client", p.clientID,
			"seq", job.seq,
			"path", p.path,
			"error", err)
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		p.status.Post(StatusError, MsgSyncFailed)
	} else {
		slog.Info("persisted snapshot",
			"client", p.clientID,
			"seq", job.seq,
			"path", p.path,
			"revision", rev)
		p.mu.Lock()
		p.revision = rev
		p.mu.Unlock()
		p.status.Post(StatusSuccess, MsgSynced)
	}

	if p.notify != nil {
		p.notify()
	}
}

// flush waits until every job queued before it has been attempted and
// returns the last write error seen since the previous flush.
func (p *persister) flush(ctx context.Context) error {
	done := make(chan error, 1)
	if !p.queue.Enqueue(persistJob{done: done}) {
		select {
		case <-p.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lastRevision returns the revision of the last successful write.
func (p *persister) lastRevision() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revision
}

// close stops accepting jobs and waits for queued ones to finish.
func (p *persister) close(ctx context.Context) {
	p.queue.Close()
	select {
	case <-p.stopped:
	case <-ctx.Done():
	}
}
