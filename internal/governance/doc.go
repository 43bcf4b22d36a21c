// Package governance coordinates runtime safety controls around outbound
// calls to the breach corpus: minimum-interval rate limiting and bounded
// retries with backoff.
//
// The interval limiter is the one process-wide serialization point in the
// engine; concurrent batch evaluations share it so they never race the
// remote corpus.
package governance
