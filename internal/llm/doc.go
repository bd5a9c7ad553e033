// Package llm provides language-model backed implementations of the
// extract.NLP and extract.Summarizer capabilities, served through
// OpenRouter.
//
// Every call carries a timeout and passes through a circuit breaker; after
// repeated failures the breaker opens and calls fail fast until the
// provider recovers. Failures are ordinary errors for the caller to scope.
package llm
