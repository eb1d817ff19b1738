// Package channel defines the contract between the dispatch core and the
// external session/transport layer, plus the shared connection-state
// registry transports publish into.
package channel

import (
	"context"
	"errors"
	"fmt"

	"chatrelay/internal/model"
)

// ConnectionState mirrors what the transport reports for an instance.
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateConnecting   ConnectionState = "connecting"
	StateDisconnected ConnectionState = "disconnected"
)

// Adapter is the transport surface the dispatcher drives. Send errors fall
// into three classes: RecipientUnavailableError (policy gate, divert to the
// pending buffer, no attempt consumed), and everything else (transient,
// consumes an attempt and backs off).
type Adapter interface {
	SendText(ctx context.Context, instanceID, recipient, text string) error
	SendMedia(ctx context.Context, instanceID, recipient, mediaURL string) error
	ConnectionState(ctx context.Context, instanceID string) (ConnectionState, error)
}

// ErrRecipientUnavailable marks a conversational-policy rejection: the
// channel is up, the message is valid, but this recipient cannot be messaged
// yet. Matched with errors.Is.
var ErrRecipientUnavailable = errors.New("recipient unavailable")

// RecipientUnavailableError carries the deferral reason alongside the
// sentinel.
type RecipientUnavailableError struct {
	Reason model.PendingReason
}

func (e *RecipientUnavailableError) Error() string {
	return fmt.Sprintf("recipient unavailable: %s", e.Reason)
}

func (e *RecipientUnavailableError) Unwrap() error {
	return ErrRecipientUnavailable
}

// DeferralReason extracts the reason from an unavailability error, falling
// back to unknown.
func DeferralReason(err error) model.PendingReason {
	var ue *RecipientUnavailableError
	if errors.As(err, &ue) && ue.Reason != "" {
		return ue.Reason
	}
	return model.ReasonUnknown
}
