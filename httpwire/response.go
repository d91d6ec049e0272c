package httpwire

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status is an HTTP response status code.
type Status int

// Status codes understood by the response writer.
const (
	StatusContinue            Status = 100
	StatusSwitchingProtocols  Status = 101
	StatusOK                  Status = 200
	StatusCreated             Status = 201
	StatusAccepted            Status = 202
	StatusNoContent           Status = 204
	StatusMovedPermanently    Status = 301
	StatusFound               Status = 302
	StatusNotModified         Status = 304
	StatusBadRequest          Status = 400
	StatusUnauthorized        Status = 401
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusMethodNotAllowed    Status = 405
	StatusInternalServerError Status = 500
	StatusNotImplemented      Status = 501
	StatusBadGateway          Status = 502
	StatusServiceUnavailable  Status = 503
)

var statusReasons = map[Status]string{
	StatusContinue:            "Continue",
	StatusSwitchingProtocols:  "Switching Protocols",
	StatusOK:                  "OK",
	StatusCreated:             "Created",
	StatusAccepted:            "Accepted",
	StatusNoContent:           "No Content",
	StatusMovedPermanently:    "Moved Permanently",
	StatusFound:               "Found",
	StatusNotModified:         "Not Modified",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusBadGateway:          "Bad Gateway",
	StatusServiceUnavailable:  "Service Unavailable",
}

// Code returns the numeric status code.
func (s Status) Code() int {
	return int(s)
}

// Reason returns the reason phrase, or an empty string for unknown codes.
func (s Status) Reason() string {
	return statusReasons[s]
}

// IsSuccess reports whether the status is in the 2xx class.
func (s Status) IsSuccess() bool {
	return s >= 200 && s < 300
}

func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}

// Defaults used when writing a response.
const (
	DefaultServerName = "wire/0.1.0"
	DefaultKeepAlive  = "timeout=5, max=100"

	dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// Response is an HTTP/1.1 response under construction. The builder methods
// mutate and return the receiver.
type Response struct {
	Status    Status
	Header    Header
	Body      []byte
	KeepAlive bool
}

// NewResponse returns an empty, persistent response with the given status.
func NewResponse(status Status) *Response {
	return &Response{
		Status:    status,
		Header:    make(Header),
		KeepAlive: true,
	}
}

// OK returns a 200 response.
func OK() *Response { return NewResponse(StatusOK) }

// NotFound returns a 404 response.
func NotFound() *Response { return NewResponse(StatusNotFound) }

// BadRequest returns a 400 response.
func BadRequest() *Response { return NewResponse(StatusBadRequest) }

// InternalServerError returns a 500 response.
func InternalServerError() *Response { return NewResponse(StatusInternalServerError) }

// SwitchingProtocols returns a 101 response.
func SwitchingProtocols() *Response { return NewResponse(StatusSwitchingProtocols) }

// WithHeader sets a header field, replacing any previous value.
func (r *Response) WithHeader(name, value string) *Response {
	r.Header.Set(name, value)
	return r
}

// WithBody sets the body and, unless already present, content-length.
func (r *Response) WithBody(body []byte) *Response {
	if !r.Header.Has("content-length") {
		r.Header.Set("content-length", strconv.Itoa(len(body)))
	}
	r.Body = body
	return r
}

// WithText sets a text/plain body.
func (r *Response) WithText(text string) *Response {
	return r.WithHeader("content-type", "text/plain; charset=utf-8").WithBody([]byte(text))
}

// WithHTML sets a text/html body.
func (r *Response) WithHTML(html string) *Response {
	return r.WithHeader("content-type", "text/html; charset=utf-8").WithBody([]byte(html))
}

// WithJSON sets an application/json body from already encoded JSON.
func (r *Response) WithJSON(json []byte) *Response {
	return r.WithHeader("content-type", "application/json; charset=utf-8").WithBody(json)
}

// CloseConnection marks the response as the last on its connection.
func (r *Response) CloseConnection() *Response {
	r.KeepAlive = false
	return r
}

// Persistent reports whether the connection stays open after this response
// is written: the response must be keep-alive, successful, and must not
// carry an explicit "connection: close".
func (r *Response) Persistent() bool {
	if v, ok := r.Header.Lookup("connection"); ok {
		return !strings.EqualFold(v, "close")
	}
	return r.KeepAlive && r.Status.IsSuccess()
}

// WriteOptions controls the default header fields added on write.
type WriteOptions struct {
	// ServerName is the default "server" value. Defaults to DefaultServerName.
	ServerName string

	// KeepAlive is the default "keep-alive" value for persistent responses.
	// Defaults to DefaultKeepAlive.
	KeepAlive string

	// Now returns the time used for the "date" field. Defaults to time.Now.
	Now func() time.Time
}

// AppendTo appends the wire form of the response to dst. Fields missing from
// the header are filled in: date, server, connection (plus keep-alive for
// persistent responses) and content-length. Header lines are written in
// sorted name order.
func (r *Response) AppendTo(dst []byte, opts WriteOptions) []byte {
	if opts.ServerName == "" {
		opts.ServerName = DefaultServerName
	}
	if opts.KeepAlive == "" {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	header := make(Header, len(r.Header)+4)
	for k, v := range r.Header {
		header[k] = v
	}

	if !header.Has("date") {
		header["date"] = opts.Now().UTC().Format(dateFormat)
	}
	if !header.Has("server") {
		header["server"] = opts.ServerName
	}
	if !header.Has("connection") {
		if r.KeepAlive && r.Status.IsSuccess() {
			header["connection"] = "keep-alive"
			if !header.Has("keep-alive") {
				header["keep-alive"] = opts.KeepAlive
			}
		} else {
			header["connection"] = "close"
		}
	}
	if !header.Has("content-length") && r.Status != StatusSwitchingProtocols {
		header["content-length"] = strconv.Itoa(len(r.Body))
	}

	names := make([]string, 0, len(header))
	for k := range header {
		names = append(names, k)
	}
	sort.Strings(names)

	dst = append(dst, "HTTP/1.1 "...)
	dst = append(dst, r.Status.String()...)
	dst = append(dst, "\r\n"...)
	for _, k := range names {
		dst = append(dst, k...)
		dst = append(dst, ": "...)
		dst = append(dst, header[k]...)
		dst = append(dst, "\r\n"...)
	}
	dst = append(dst, "\r\n"...)
	return append(dst, r.Body...)
}

// Bytes returns the wire form of the response using default write options.
func (r *Response) Bytes() []byte {
	return r.AppendTo(nil, WriteOptions{})
}

// WriteTo writes the wire form of the response to w using default write
// options.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
