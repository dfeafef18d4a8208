package driven

// HookEvent is a dispatchable notification. Data may carry "owner"/"repo"
// strings for repository-override matching. It carries no timestamp; the
// dispatcher stamps the time when it enqueues the event.
type HookEvent struct {
	Name string
	Data map[string]any
}

// HookDispatcher is the driven port over the asynchronous hook queue (C8).
// Dispatch only enqueues; actions run on the dispatcher's own worker. An
// implementation with a bounded queue may block Dispatch while the queue is
// full.
type HookDispatcher interface {
	Dispatch(event HookEvent)
	Start()
	Stop()
}
