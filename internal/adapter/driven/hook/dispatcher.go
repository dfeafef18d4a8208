package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/agpm-go/agpm/internal/domain/port/driven"
)

const httpActionTimeout = 10 * time.Second

// Compile-time interface satisfaction check.
var _ driven.HookDispatcher = (*Dispatcher)(nil)

// Dispatcher is the driven.HookDispatcher realization: one buffered channel,
// one worker goroutine, sequential action execution per event.
type Dispatcher struct {
	settings Settings
	queue    chan Event
	client   *http.Client
	logger   *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewDispatcher compiles every repository override's pattern once and
// returns a Dispatcher ready for Start. queueSize bounds the pending event
// FIFO; a full queue blocks Dispatch until the worker drains it.
func NewDispatcher(settings Settings, queueSize int, logger *slog.Logger) (*Dispatcher, error) {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	compiled := make([]RepositoryOverride, len(settings.Overrides))
	for i, ov := range settings.Overrides {
		matcher, err := newOverrideMatcher(ov.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling hook override pattern %q: %w", ov.Pattern, err)
		}
		ov.matcher = matcher
		compiled[i] = ov
	}
	settings.Overrides = compiled

	return &Dispatcher{
		settings: settings,
		queue:    make(chan Event, queueSize),
		client:   &http.Client{Timeout: httpActionTimeout},
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Dispatch stamps and enqueues an event. It blocks if the queue is full.
// Calling Dispatch after Stop is a no-op; the event is dropped.
func (d *Dispatcher) Dispatch(event driven.HookEvent) {
	e := Event{Name: event.Name, Data: event.Data, Timestamp: time.Now()}
	select {
	case d.queue <- e:
	case <-d.stopCh:
	}
}

// Start spawns the worker goroutine. Safe to call once.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop signals the worker to drain remaining queued events and exit, then
// waits for it. Safe to call multiple times.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.queue:
			d.handle(e)
		case <-d.stopCh:
			d.drain()
			return
		}
	}
}

// drain processes whatever is already queued without blocking, then
// returns; events arriving after Stop was called are dropped.
func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			d.handle(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(e Event) {
	enabled, actions := resolve(d.settings, e)
	if !enabled || len(actions) == 0 {
		return
	}
	for _, action := range actions {
		d.invoke(e, action)
	}
}

// resolve implements the four-step action-resolution rule: repository
// override match, then enabled/defaults/event_actions precedence, global
// event_actions over default_actions otherwise.
func resolve(settings Settings, e Event) (bool, []Action) {
	var override *RepositoryOverride
	if owner, repo, ok := extractRepo(e.Data); ok {
		slug := owner + "/" + repo
		for i := range settings.Overrides {
			if settings.Overrides[i].matcher.match(slug) {
				override = &settings.Overrides[i]
				break
			}
		}
	}

	enabled := settings.Enabled
	defaults := settings.DefaultActions
	eventActions, eventActionsSet := settings.EventActions[e.Name]

	if override != nil {
		if override.Enabled != nil {
			enabled = *override.Enabled
		}
		if override.DefaultActions != nil {
			defaults = override.DefaultActions
		}
		if override.EventActions != nil {
			if acts, ok := override.EventActions[e.Name]; ok {
				eventActions, eventActionsSet = acts, true
			}
		}
	}

	if !enabled {
		return false, nil
	}
	if eventActionsSet {
		return true, eventActions
	}
	return true, defaults
}

func (d *Dispatcher) invoke(e Event, action Action) {
	payload, err := buildPayload(e, action.Parameters)
	if err != nil {
		d.logger.Error("hook payload marshal failed", "event", e.Name, "error", err)
		return
	}

	switch action.Kind {
	case ActionCommand:
		d.runCommand(e, action, payload)
	case ActionHTTP:
		d.runHTTP(e, action, payload)
	}
}

type hookPayload struct {
	Event      string         `json:"event"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data,omitempty"`
	Parameters []string       `json:"parameters,omitempty"`
}

func buildPayload(e Event, params []string) ([]byte, error) {
	return json.Marshal(hookPayload{
		Event:      e.Name,
		Timestamp:  e.Timestamp,
		Data:       e.Data,
		Parameters: params,
	})
}

// runCommand executes action.Command with a scoped environment: the
// parent process's environment is never mutated, only cmd.Env for this
// one invocation.
func (d *Dispatcher) runCommand(e Event, action Action, payload []byte) {
	fields := strings.Fields(action.Command)
	if len(fields) == 0 {
		d.logger.Warn("hook command action has empty command", "event", e.Name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpActionTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Env = append(cmd.Environ(),
		"AGPM_HOOK_EVENT="+e.Name,
		"AGPM_HOOK_PAYLOAD="+string(payload),
		"AGPM_HOOK_COMMAND="+action.Command,
	)
	for _, param := range action.Parameters {
		cmd.Env = append(cmd.Env, "AGPM_HOOK_PARAM_"+paramEnvName(param)+"="+param)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		d.logger.Warn("hook command failed", "event", e.Name, "command", action.Command,
			"error", err, "stderr", strings.TrimSpace(stderr.String()))
		return
	}
	d.logger.Debug("hook command succeeded", "event", e.Name, "command", action.Command)
}

// paramEnvName sanitizes a parameter value into an environment-variable
// name suffix: non-alphanumeric characters become underscores, and an
// empty result falls back to "PARAM".
func paramEnvName(param string) string {
	var b strings.Builder
	for _, r := range param {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "PARAM"
	}
	return b.String()
}

func (d *Dispatcher) runHTTP(e Event, action Action, payload []byte) {
	method := action.Method
	if method == "" {
		method = http.MethodPost
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpActionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, action.Endpoint, bytes.NewReader(payload))
	if err != nil {
		d.logger.Warn("hook http action request build failed", "event", e.Name, "endpoint", action.Endpoint, "error", err)
		return
	}

	hasContentType := false
	for k, v := range action.Headers {
		req.Header.Set(k, v)
		if strings.EqualFold(k, "Content-Type") {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("hook http action failed", "event", e.Name, "endpoint", action.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	d.logger.Debug("hook http action completed", "event", e.Name, "endpoint", action.Endpoint, "status", resp.StatusCode)
}
