// Package backend is the single chokepoint for calls to the translation API.
//
// Every request goes through Client.Do, which applies the header rules
// (X-API-Key only when a non-empty key is available, JSON content type for
// JSON bodies, transport-computed multipart boundaries for uploads), stamps a
// correlation ID, and normalizes responses: any 2xx is success (an empty or
// non-JSON body yields an empty Result), anything else becomes an *HTTPError
// whose message is the server's detail field or "HTTP <code>". Network level
// failures surface as *TransportError.
//
// The client holds no mutable state and never retries; retry policy belongs
// to the caller (see package jobs for the status polling loop).
package backend
