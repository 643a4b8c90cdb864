package storage

import (
	"context"

	"github.com/hawosalon/salon/libs/db"
)

// Notification is one delivery attempt to one recipient.
type Notification struct {
	EventID   string
	EventType string
	BookingID string
	Channel   string // email or sms
	Recipient string
	Role      string
	Subject   string
	Provider  string
	Status    string // sent or failed
	Error     string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(event_id, event_type, booking_id, channel, recipient, recipient_role, subject, provider, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
	`, n.EventID, n.EventType, n.BookingID, n.Channel, n.Recipient, n.Role, n.Subject, n.Provider, n.Status, n.Error)
	return err
}

// Delivered returns the channel/recipient pairs already sent for an event,
// keyed by DeliveryKey.
func (r *Repository) Delivered(ctx context.Context, eventID string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel, recipient FROM notifications
		WHERE event_id = $1 AND status = 'sent'
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var channel, recipient string
		if err := rows.Scan(&channel, &recipient); err != nil {
			return nil, err
		}
		out[DeliveryKey(channel, recipient)] = true
	}
	return out, rows.Err()
}

func DeliveryKey(channel, recipient string) string {
	return channel + ":" + recipient
}
