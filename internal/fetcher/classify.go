package fetcher

// Class buckets a fetch attempt outcome for retry decisions.
type Class int

// Attempt outcome classes.
const (
	// ClassSuccess is a 2xx response.
	ClassSuccess Class = iota
	// ClassTransient covers transport errors, 5xx, and (when enabled)
	// 429; the attempt may be retried within the budget.
	ClassTransient
	// ClassPermanent covers the remaining 4xx class (404 means "no such
	// application"); surfaced immediately without retry.
	ClassPermanent
)

// Classify maps an HTTP status code to an outcome class. statusCode 0
// means the request failed below the HTTP layer (timeout, connection
// reset) and is always transient. Whether 429 counts as transient is
// configurable because upstream throttling policy differs from a
// genuine server fault.
func Classify(statusCode int, retryOn429 bool) Class {
	switch {
	case statusCode == 0:
		return ClassTransient
	case statusCode >= 200 && statusCode < 300:
		return ClassSuccess
	case statusCode == 429:
		if retryOn429 {
			return ClassTransient
		}
		return ClassPermanent
	case statusCode >= 500:
		return ClassTransient
	default:
		return ClassPermanent
	}
}
