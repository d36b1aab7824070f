// File: internal/services/ai/invoker.go
package ai

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// State is a snapshot of an Invoker as shown to the UI.
type State struct {
	IsLoading bool    `json:"isLoading"`
	Error     *string `json:"error"`
}

// Invoker is the caller-facing wrapper around the retry controller. It owns the loading and error
// state of one portal client. Only one invocation runs at a time; a second call while loading is
// rejected without touching the in-flight state. Loading stays set during backoff waits.
type Invoker struct {
	clientID   string
	remote     FunctionInvoker
	controller *Controller
	notifier   Notifier
	logger     Logger
	defaults   Options

	mu       sync.Mutex
	loading  bool
	lastErr  string
	lastUsed time.Time
}

func NewInvoker(clientID string, remote FunctionInvoker, controller *Controller, notifier Notifier, defaults Options, logger Logger) *Invoker {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Invoker{
		clientID:   clientID,
		remote:     remote,
		controller: controller,
		notifier:   notifier,
		logger:     logger,
		defaults:   defaults,
		lastUsed:   time.Now(),
	}
}

// Invoke calls the named remote function with retries. On success it returns the result. On
// terminal failure it records the user message, notifies, and returns a nil result with the error.
func (i *Invoker) Invoke(ctx context.Context, function string, payload json.RawMessage, opts InvokeOptions) (json.RawMessage, error) {
	if !i.begin() {
		err := NewBusyError()
		err.Function = function
		i.logger.Warn("rejected concurrent invocation", "client", i.clientID, "function", function)
		i.notify(ctx, UserMessage(err))
		return nil, err
	}

	var (
		result json.RawMessage
		err    error
	)
	defer func() {
		i.finish(err)
	}()

	resolved := opts.Resolve(i.defaults)
	result, err = Retry(ctx, i.controller, resolved, func(ctx context.Context) (json.RawMessage, error) {
		return i.remote.InvokeFunction(ctx, function, payload)
	})
	if err != nil {
		i.logger.Error("invocation failed", "client", i.clientID, "function", function, "error", err)
		i.notify(ctx, UserMessage(err))
		return nil, err
	}
	return result, nil
}

func (i *Invoker) begin() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.loading {
		return false
	}
	i.loading = true
	i.lastErr = ""
	i.lastUsed = time.Now()
	return true
}

func (i *Invoker) finish(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.loading = false
	i.lastUsed = time.Now()
	if err != nil {
		i.lastErr = UserMessage(err)
	}
}

func (i *Invoker) notify(ctx context.Context, message string) {
	if i.notifier == nil {
		return
	}
	// The request context may already be done; the toast must still go out.
	i.notifier.NotifyError(context.WithoutCancel(ctx), i.clientID, message)
}

func (i *Invoker) IsLoading() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loading
}

// LastError returns the message of the last terminal failure, or "" if there was none.
func (i *Invoker) LastError() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastErr
}

func (i *Invoker) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	s := State{IsLoading: i.loading}
	if i.lastErr != "" {
		msg := i.lastErr
		s.Error = &msg
	}
	return s
}

func (i *Invoker) ClientID() string {
	return i.clientID
}

func (i *Invoker) touch(now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lastUsed = now
}

// idle reports whether the invoker has no call in flight and has not been used since before cutoff.
func (i *Invoker) idle(cutoff time.Time) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.loading && i.lastUsed.Before(cutoff)
}

// RegistryConfig controls eviction of idle clients.
type RegistryConfig struct {
	IdleTTL       time.Duration // Forget clients idle for this long
	CleanupPeriod time.Duration // How often to look for idle clients
}

func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		IdleTTL:       30 * time.Minute,
		CleanupPeriod: 5 * time.Minute,
	}
}

// Registry keeps one Invoker per portal client. Clients idle for longer than IdleTTL are dropped,
// along with their last error; a client with a call in flight is never dropped.
type Registry struct {
	mu       sync.Mutex
	invokers map[string]*Invoker
	factory  func(clientID string) *Invoker
	config   *RegistryConfig
	stopCh   chan struct{}
	once     sync.Once
}

// NewRegistry creates a registry. A nil config keeps clients forever.
func NewRegistry(factory func(clientID string) *Invoker, config *RegistryConfig) *Registry {
	r := &Registry{
		invokers: make(map[string]*Invoker),
		factory:  factory,
		config:   config,
		stopCh:   make(chan struct{}),
	}
	if config != nil && config.IdleTTL > 0 && config.CleanupPeriod > 0 {
		go r.cleanupLoop()
	}
	return r
}

func (r *Registry) Get(clientID string) *Invoker {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invokers[clientID]
	if !ok {
		inv = r.factory(clientID)
		r.invokers[clientID] = inv
	}
	inv.touch(time.Now())
	return inv
}

// Lookup returns the client's invoker without creating one.
func (r *Registry) Lookup(clientID string) (*Invoker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invokers[clientID]
	return inv, ok
}

// Len returns the number of tracked clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invokers)
}

// Prune drops clients idle since before now-IdleTTL and returns how many were removed.
func (r *Registry) Prune(now time.Time) int {
	if r.config == nil || r.config.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.config.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for clientID, inv := range r.invokers {
		if inv.idle(cutoff) {
			delete(r.invokers, clientID)
			removed++
		}
	}
	return removed
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Prune(time.Now())
		case <-r.stopCh:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stopCh) })
}
