package jobs

import (
	"context"
	"time"
)

// InviteDelivery adapts the queue client to the invitation service's mail
// hand-off point.
type InviteDelivery struct {
	client *Client
}

// NewInviteDelivery constructs an InviteDelivery.
func NewInviteDelivery(client *Client) *InviteDelivery {
	return &InviteDelivery{client: client}
}

// EnqueueInviteMail queues the invitation email for the worker.
func (d *InviteDelivery) EnqueueInviteMail(ctx context.Context, email, name, rawToken string, expiresAt time.Time) error {
	_, err := d.client.EnqueueInviteMail(ctx, InviteMailPayload{
		Email:     email,
		Name:      name,
		Token:     rawToken,
		ExpiresAt: expiresAt,
	})
	return err
}
