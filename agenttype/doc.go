// Package agenttype provides the agent-type registry and the built-in
// behavior set: a civility moderator, playful discussion facilitators
// (message-triggered and periodic) and a periodic reflection agent.
//
// Agent types follow a "one behavior-set, many variants" shape: a small
// closed set of capability implementations behind the core.Behavior
// interface, selected by registry lookup at agent-construction time rather
// than inheritance. Built-in behaviors delegate judgment and response
// generation to a provider.Completer so the same type works against OpenAI,
// Anthropic or a mock.
package agenttype
