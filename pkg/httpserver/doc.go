// Package httpserver runs the HTTP listener with graceful, signal-aware
// shutdown tuned for long-lived event stream connections.
package httpserver
