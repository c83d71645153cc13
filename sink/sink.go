// Package sink declares the messaging sink contract: create a notification,
// get an opaque handle back, and later edit the notification by handle.
package sink

import (
	"context"
	"encoding/json"

	"github.com/teranos/jobpulse/listing"
)

// Payload is the exact body sent to the sink. It is stored verbatim in the
// alert history and handed back to the Renderer when the listing closes.
type Payload = json.RawMessage

// Sink delivers notifications.
type Sink interface {
	// Create sends payload and returns the handle of the new message.
	Create(ctx context.Context, payload Payload) (handle string, err error)
	// Edit replaces the message identified by handle with payload.
	Edit(ctx context.Context, handle string, payload Payload) error
}

// Renderer turns listings into sink payloads.
type Renderer interface {
	// RenderOpened builds the announcement for a listing published by source.
	RenderOpened(source string, l listing.Listing) (Payload, error)
	// RenderClosed derives the "no longer available" edit from the payload
	// originally sent.
	RenderClosed(original Payload) (Payload, error)
}
