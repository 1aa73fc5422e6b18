package domain

// ErrorKind classifies a failed datafeed call.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindServerError
	ErrorKindBadRequest
	ErrorKindUnauthorized
	ErrorKindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindServerError:
		return "server_error"
	case ErrorKindBadRequest:
		return "bad_request"
	case ErrorKindUnauthorized:
		return "unauthorized"
	case ErrorKindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}
