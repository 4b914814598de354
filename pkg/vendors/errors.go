package vendors

import "fmt"

// AuthError means the vendor rejected our credentials (401/403). The vendor's
// contribution becomes empty for this run; other vendors keep going.
type AuthError struct {
	Vendor string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Vendor, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError means the configured organization or resource does not exist
// on the vendor's side (404).
type NotFoundError struct {
	Vendor   string
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Vendor, e.Resource)
}

// TransportError covers every other network or unexpected-status failure.
// There is no retry; the next scheduled run tries again.
type TransportError struct {
	Vendor string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Vendor, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError maps a vendor HTTP status code onto the shared taxonomy.
// title is optional context extracted from HTML error pages.
func StatusError(vendor, resource string, status int, title string) error {
	detail := fmt.Sprintf("status %d", status)
	if title != "" {
		detail = fmt.Sprintf("status %d (%s)", status, title)
	}
	switch status {
	case 401, 403:
		return &AuthError{Vendor: vendor, Err: fmt.Errorf("%s", detail)}
	case 404:
		return &NotFoundError{Vendor: vendor, Resource: resource}
	default:
		return &TransportError{Vendor: vendor, Err: fmt.Errorf("%s", detail)}
	}
}
