// Package provider defines the completion-provider abstraction behaviors use
// for judgment and response generation, plus a deterministic mock for tests.
// Concrete adapters live in sub-packages (openai, anthropic) so the engine
// never links a vendor SDK it does not use.
package provider
