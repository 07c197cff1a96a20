package network

import (
	"net/http"
	"net/url"
)

// Descriptor is a fully prepared request: the value request interceptors
// rewrite and the value the Transport sends.
type Descriptor struct {
	// URL is the absolute target URL.
	URL *url.URL

	// Method is the HTTP method (GET, POST, PUT, ...).
	Method string

	// Header holds request headers. Never nil on a built descriptor.
	Header http.Header

	// Body is the serialized request body, or nil.
	Body []byte
}

// Clone returns a deep copy so interceptors can modify a descriptor without
// affecting the one a retry would re-send.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	clone := &Descriptor{
		Method: d.Method,
		Header: d.Header.Clone(),
	}
	if d.URL != nil {
		u := *d.URL
		clone.URL = &u
	}
	if clone.Header == nil {
		clone.Header = make(http.Header)
	}
	if d.Body != nil {
		clone.Body = append([]byte(nil), d.Body...)
	}
	return clone
}

// String renders the method and URL, for logs.
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil descriptor>"
	}
	if d.URL == nil {
		return d.Method
	}
	return d.Method + " " + d.URL.Redacted()
}
