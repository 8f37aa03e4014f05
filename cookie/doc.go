// Package cookie keeps a typed value in sync with an HTTP cookie.
//
// On the server a Cell reads the incoming Cookie header and writes
// Set-Cookie once, when the render finishes, and only if the value changed.
// On the client it reads and writes a Document (the browser cookie jar) and
// mirrors every change to other tabs through a Broadcaster; values received
// from other tabs are applied without being echoed back.
package cookie
