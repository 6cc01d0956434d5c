// Package oracle abstracts the language model behind nexus.
//
// Everything semantic in nexus flows through two narrow interfaces:
// SemanticOracle (free-form reasoning) and EmbeddingOracle (vectors for the
// similarity index). Three providers implement them: Gemini, OpenAI and
// Anthropic (reasoning only). The factory picks one from configuration and
// wraps it in a Client that serializes calls, spaces them out and retries
// rate limit errors with a linear backoff.
//
// Oracle responses are text that usually contains JSON. Decode centralizes
// the unwrapping (markdown fences, surrounding prose) and reports success
// as a value rather than an error, because a malformed response is an
// expected outcome with a defined fallback at every call site.
package oracle
