package httpwire

import "strings"

// Method is one of the request methods defined in RFC 9110, section 9.
type Method uint8

// Recognized request methods.
const (
	MethodGet Method = iota + 1
	MethodPost
	MethodPut
	MethodDelete
	MethodHead
	MethodOptions
	MethodPatch
	MethodTrace
	MethodConnect
)

var methodNames = [...]string{
	MethodGet:     "GET",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodHead:    "HEAD",
	MethodOptions: "OPTIONS",
	MethodPatch:   "PATCH",
	MethodTrace:   "TRACE",
	MethodConnect: "CONNECT",
}

// ParseMethod maps a request-line token to a Method. Matching is
// case-insensitive; unknown tokens return ErrUnsupportedMethod.
func ParseMethod(s string) (Method, error) {
	for m := MethodGet; m <= MethodConnect; m++ {
		if strings.EqualFold(s, methodNames[m]) {
			return m, nil
		}
	}
	return 0, ErrUnsupportedMethod
}

func (m Method) String() string {
	if m < MethodGet || m > MethodConnect {
		return "UNKNOWN"
	}
	return methodNames[m]
}
