package followapi

import "fmt"

// FallbackMessage is used when a failed response carries no message field.
const FallbackMessage = "An error occurred while fetching the data"

// TimeoutReason is the failure reason reported for requests that ran out of time.
const TimeoutReason = "timeout"

// ServiceError is a non-2xx response from the follow endpoint.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// NetworkError is a transport failure: the request never got a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is a request that exceeded the client's bounded timeout.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return TimeoutReason }
func (e *TimeoutError) Unwrap() error { return e.Err }
