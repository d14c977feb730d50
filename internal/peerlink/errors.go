package peerlink

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateLink       = errors.New("peer link already exists")
	ErrUnknownLink         = errors.New("no peer link for participant")
	ErrLinkClosed          = errors.New("peer link closed")
	ErrNegotiationRejected = errors.New("negotiation rejected")
	ErrUnexpectedOffer     = errors.New("offer not expected in current state")
	ErrUnexpectedAnswer    = errors.New("answer not expected in current state")
)

// NegotiationError records which negotiation step failed for which peer.
type NegotiationError struct {
	Op     string
	PeerID string
	Err    error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("%s (peer %s): %v", e.Op, e.PeerID, e.Err)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

func newNegotiationError(op, peerID string, err error) *NegotiationError {
	return &NegotiationError{Op: op, PeerID: peerID, Err: err}
}
