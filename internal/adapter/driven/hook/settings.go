package hook

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseAction parses one action string in the grammar
// "command:<cmd>" or "http:<method>:<url>". The HTTP form's method segment
// may be empty, in which case the dispatcher defaults to POST.
func ParseAction(raw string) (Action, error) {
	kind, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return Action{}, fmt.Errorf("hook action %q missing \"kind:\" prefix", raw)
	}

	switch kind {
	case "command":
		if rest == "" {
			return Action{}, fmt.Errorf("hook action %q has an empty command", raw)
		}
		return Action{Kind: ActionCommand, Command: rest}, nil

	case "http":
		method, endpoint, ok := strings.Cut(rest, ":")
		if !ok {
			return Action{}, fmt.Errorf("hook action %q expected \"http:<method>:<url>\"", raw)
		}
		if endpoint == "" {
			return Action{}, fmt.Errorf("hook action %q has an empty URL", raw)
		}
		if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return Action{}, fmt.Errorf("hook action %q expected \"http:<method>:<url>\" with an absolute URL", raw)
		}
		return Action{Kind: ActionHTTP, Method: strings.ToUpper(method), Endpoint: endpoint}, nil

	default:
		return Action{}, fmt.Errorf("hook action %q has unrecognized kind %q", raw, kind)
	}
}

// ParseActions parses a slice of action strings, stopping at the first
// malformed entry.
func ParseActions(raw []string) ([]Action, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	actions := make([]Action, 0, len(raw))
	for _, r := range raw {
		a, err := ParseAction(r)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// BuildSettings translates the configuration layer's string-grammar hook
// options into dispatcher Settings. It carries no repository overrides:
// those are a future configuration surface the current option set does not
// expose.
func BuildSettings(enabled bool, defaultActions []string, eventActions map[string][]string, pullThreshold, branchThreshold int) (Settings, error) {
	defaults, err := ParseActions(defaultActions)
	if err != nil {
		return Settings{}, err
	}

	events := make(map[string][]Action, len(eventActions))
	for name, raw := range eventActions {
		actions, err := ParseActions(raw)
		if err != nil {
			return Settings{}, err
		}
		events[name] = actions
	}

	return Settings{
		Enabled:         enabled,
		DefaultActions:  defaults,
		EventActions:    events,
		PullThreshold:   pullThreshold,
		BranchThreshold: branchThreshold,
	}, nil
}
