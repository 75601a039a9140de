package handlers

import (
	"context"

	"github.com/marmos91/dittohttp/pkg/content"
)

// HTTPHandlerContext is the context passed to every route handler.
//
// It carries everything a handler may need besides the request itself:
//   - Check for cancellation (Context)
//   - Identify the client in logs (ClientAddr, RequestID)
//   - Reach persistent storage (Store)
//
// Handlers never touch the connection: they return a response or an error
// and the connection driver does the I/O.
type HTTPHandlerContext struct {
	// Context carries cancellation signals and deadlines.
	// Cancelled when the server shuts down.
	Context context.Context

	// ClientAddr is the network address of the client ("IP:port").
	ClientAddr string

	// RequestID correlates log lines for one connection.
	RequestID string

	// Store is the shared file store used by the /files routes.
	Store content.FileStore
}
