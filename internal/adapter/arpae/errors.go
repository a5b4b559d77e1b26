package arpae

import "fmt"

// FetchError reports a failed download: either a transport error or a
// non-200 answer.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("arpae: fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("arpae: fetch %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Network marks download failures as retryable for exitcode.For.
func (e *FetchError) Network() bool { return true }
