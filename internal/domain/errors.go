package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether username or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	ErrAccountLocked = errors.New("account locked")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	// ErrForbidden is returned when the caller is authenticated but lacks
	// access to the requested warehouse. It must fire before any ERP call.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateOperation is the idempotent-replay rejection: a receipt with
	// the same operation fingerprint was already accepted.
	ErrDuplicateOperation = errors.New("duplicate operation")
	// ErrUpstreamAuth means the ERP rejected the service credentials even
	// after the single re-login retry.
	ErrUpstreamAuth = errors.New("upstream authentication failed")
	// ErrUpstream wraps non-retryable ERP error responses; the wrapped detail
	// carries the status code and a body excerpt.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamUnavailable marks transient network/TLS failures that
	// survived the single backoff retry.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPersistence flags an audit write that failed after a successful ERP
	// post. Surfaced as a hard error because the receipt now exists upstream
	// without a correlating idempotency record.
	ErrPersistence = errors.New("persistence failure")
	// ErrConfig covers missing or unusable startup configuration.
	ErrConfig = errors.New("configuration error")
)
