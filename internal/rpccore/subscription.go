// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"github.com/gobwas/glob"
)

// globSubscription is a fallback subscription matcher: a compiled glob
// pattern plus the handler to run when a topic matches it.
type globSubscription struct {
	pattern string
	g       glob.Glob
	handler CommandHandler
}

// Subscribe registers handler for topic. topic is tried as an exact
// literal match first; if it contains any of the glob meta-characters
// (`*`, `?`, `[`), it is additionally compiled as a glob pattern and
// consulted only when no exact match is found for an inbound topic.
// This preserves the distilled spec's exact-match default while adding
// glob matching as a supplemental, opt-in mode.
func (h *Host) Subscribe(topic string, handler CommandHandler) error {
	if h.subscriptions == nil {
		h.subscriptions = make(map[string]CommandHandler)
	}
	h.subscriptions[topic] = handler
	h.subscriptionOrder = append(h.subscriptionOrder, topic)

	if isGlobPattern(topic) {
		g, err := glob.Compile(topic)
		if err != nil {
			return protocolViolation("subscribe_bad_glob", "topic", topic).Wrap(err)
		}
		h.subGlobs = append(h.subGlobs, globSubscription{pattern: topic, g: g, handler: handler})
	}
	return nil
}

// RegisterHook registers handler for hook name, exposed to the node in
// the manifest's "hooks" list.
func (h *Host) RegisterHook(spec HookSpec) {
	if h.hooks == nil {
		h.hooks = make(map[string]CommandHandler)
	}
	h.hooks[spec.Name] = spec.Handler
	h.hookOrder = append(h.hookOrder, spec.Name)
}

// matchSubscription resolves topic to a handler: an exact literal match
// wins; failing that, the first glob pattern (in registration order)
// that matches is used.
func (h *Host) matchSubscription(topic string) (CommandHandler, bool) {
	if handler, ok := h.subscriptions[topic]; ok {
		return handler, true
	}
	for _, gs := range h.subGlobs {
		if gs.g.Match(topic) {
			return gs.handler, true
		}
	}
	return nil, false
}

func isGlobPattern(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}
