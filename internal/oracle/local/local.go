// Package local runs the decryption oracle in-process: a bounded job queue,
// a small worker pool that decrypts and signs, and a dispatcher hook through
// which results re-enter the service as callbacks. Dev and test deployments
// use it in place of the external oracle service.
package local

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"velum/internal/oracle"
	"velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
)

// Decryptor is the secret-key half of the engine suite. Only this package
// touches it.
type Decryptor interface {
	DecryptString(ct domain.Ciphertext) (string, error)
	DecryptCount(ct domain.Ciphertext) (uint64, error)
}

// Dispatcher receives decrypted results. The callback handlers implement it;
// SetDispatcher breaks the construction cycle between the runtime and the
// services it calls back into.
type Dispatcher interface {
	DeliverSimulationResult(ctx context.Context, requestID domain.RequestID, clearValues []string, proof []byte) error
	DeliverDecryptedCount(ctx context.Context, requestID domain.RequestID, count uint64, proof []byte) error
}

type job struct {
	requestID domain.RequestID
	payload   []domain.Ciphertext
	target    oracle.CallbackTarget
}

// Runtime implements oracle.Oracle against an in-process decryptor.
type Runtime struct {
	decryptor Decryptor
	signer    *oracle.Signer
	verifier  *oracle.Verifier
	log       *slog.Logger

	delay   time.Duration
	workers int
	queue   chan job

	mu         sync.RWMutex
	dispatcher Dispatcher
}

type Option func(*Runtime)

// WithDelay sets the simulated oracle latency before each delivery.
func WithDelay(d time.Duration) Option {
	return func(r *Runtime) { r.delay = d }
}

// WithWorkers sets the delivery worker count.
func WithWorkers(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithQueueSize bounds the pending job queue.
func WithQueueSize(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.queue = make(chan job, n)
		}
	}
}

func New(decryptor Decryptor, signer *oracle.Signer, verifier *oracle.Verifier, log *slog.Logger, opts ...Option) *Runtime {
	r := &Runtime{
		decryptor: decryptor,
		signer:    signer,
		verifier:  verifier,
		log:       log,
		delay:     0,
		workers:   4,
		queue:     make(chan job, 256),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetDispatcher wires the callback sink. Must be called before Run.
func (r *Runtime) SetDispatcher(d Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatcher = d
}

// IssueDecryptionRequest validates the payload shape for the target, assigns
// a request id, and enqueues the job. The payload is cloned at call time so
// later caller mutations cannot reach the worker.
func (r *Runtime) IssueDecryptionRequest(ctx context.Context, payload []domain.Ciphertext, target oracle.CallbackTarget) (domain.RequestID, error) {
	switch target {
	case oracle.TargetSimulationResult:
		if len(payload) != oracle.SimulationPayloadSize {
			return "", dErrors.New(dErrors.CodeInvalidInput, "simulation payload must hold exactly four ciphertexts")
		}
	case oracle.TargetDecryptedCount:
		if len(payload) != oracle.CountPayloadSize {
			return "", dErrors.New(dErrors.CodeInvalidInput, "count payload must hold exactly one ciphertext")
		}
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown callback target")
	}
	for i, ct := range payload {
		if ct.IsZero() {
			return "", dErrors.New(dErrors.CodeInvalidInput, "payload ciphertext "+strconv.Itoa(i)+" is empty")
		}
	}

	requestID := domain.RequestID(uuid.NewString())
	cloned := make([]domain.Ciphertext, len(payload))
	for i, ct := range payload {
		cloned[i] = ct.Clone()
	}

	select {
	case r.queue <- job{requestID: requestID, payload: cloned, target: target}:
		return requestID, nil
	default:
		return "", dErrors.New(dErrors.CodeUnavailable, "oracle queue full")
	}
}

// VerifyProof checks the proof against the runtime's signing key.
func (r *Runtime) VerifyProof(_ context.Context, requestID domain.RequestID, clearValues []string, proof []byte) error {
	return r.verifier.Verify(requestID, clearValues, proof)
}

// Run drains the queue with the configured worker pool until ctx is
// cancelled. Delivery rejections are expected outcomes (expired trackers,
// repeated callbacks) and are logged, not escalated.
func (r *Runtime) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case j := <-r.queue:
					r.process(ctx, j)
				}
			}
		})
	}
	return g.Wait()
}

func (r *Runtime) process(ctx context.Context, j job) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	r.mu.RLock()
	dispatcher := r.dispatcher
	r.mu.RUnlock()
	if dispatcher == nil {
		r.log.ErrorContext(ctx, "oracle job dropped: no dispatcher wired",
			"request_id", j.requestID, "target", j.target)
		return
	}

	switch j.target {
	case oracle.TargetSimulationResult:
		r.deliverSimulationResult(ctx, dispatcher, j)
	case oracle.TargetDecryptedCount:
		r.deliverDecryptedCount(ctx, dispatcher, j)
	}
}

func (r *Runtime) deliverSimulationResult(ctx context.Context, dispatcher Dispatcher, j job) {
	clearValues := make([]string, len(j.payload))
	for i, ct := range j.payload {
		value, err := r.decryptor.DecryptString(ct)
		if err != nil {
			r.log.ErrorContext(ctx, "oracle decryption failed",
				"request_id", j.requestID, "ciphertext_index", i, "error", err)
			return
		}
		clearValues[i] = value
	}

	proof := r.signer.Sign(j.requestID, clearValues)
	if err := dispatcher.DeliverSimulationResult(ctx, j.requestID, clearValues, proof); err != nil {
		r.log.WarnContext(ctx, "simulation result delivery rejected",
			"request_id", j.requestID, "error", err)
	}
}

func (r *Runtime) deliverDecryptedCount(ctx context.Context, dispatcher Dispatcher, j job) {
	count, err := r.decryptor.DecryptCount(j.payload[0])
	if err != nil {
		r.log.ErrorContext(ctx, "oracle decryption failed",
			"request_id", j.requestID, "error", err)
		return
	}

	// The proof signs the count's canonical decimal form so callback
	// verification and delivery share one value list.
	proof := r.signer.Sign(j.requestID, []string{strconv.FormatUint(count, 10)})
	if err := dispatcher.DeliverDecryptedCount(ctx, j.requestID, count, proof); err != nil {
		r.log.WarnContext(ctx, "decrypted count delivery rejected",
			"request_id", j.requestID, "error", err)
	}
}
