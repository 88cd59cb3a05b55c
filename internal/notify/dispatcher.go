// Package notify persists notifications and pushes them to connected users.
//
// Persistence is the durable record; push is best effort. Callers invoke the
// dispatcher after their own transaction has committed and only log its errors.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/localnerve/gestionale/internal/metrics"
	"github.com/localnerve/gestionale/internal/models"
	"gorm.io/gorm"
)

// Notification types
const (
	ExpenseAdded       = "expense_added"
	ExpenseUpdated     = "expense_updated"
	ExpenseDeleted     = "expense_deleted"
	GroupMemberJoined  = "group_member_joined"
	GroupMemberAdded   = "group_member_added"
	GroupMemberRemoved = "group_member_removed"
	GroupUpdated       = "group_updated"
	GroupDeleted       = "group_deleted"
	ListItemAdded      = "list_item_added"
	ListItemUpdated    = "list_item_updated"
	ListItemCompleted  = "list_item_completed"
	ListItemDeleted    = "list_item_deleted"
	ListShared         = "list_shared"
	ListUpdated        = "list_updated"
	ListDeleted        = "list_deleted"
)

// Deliverer hands a frame to a user's live channels on this instance
type Deliverer interface {
	Deliver(msg []byte, userID uint64) int
	IsConnected(userID uint64) bool
}

// Publisher fans a frame out to every instance
type Publisher interface {
	Publish(ctx context.Context, userID uint64, msg []byte) error
}

// Event describes one notification to create
type Event struct {
	UserID        uint64
	Type          string
	Title         string
	Message       string
	ReferenceID   *uint64
	ReferenceType string
	Data          any
}

// Frame is the push payload sent over the websocket
type Frame struct {
	Type             string    `json:"type"`
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	NotificationType string    `json:"notification_type"`
	ReferenceID      *uint64   `json:"reference_id"`
	ReferenceType    *string   `json:"reference_type"`
	CreatedAt        time.Time `json:"created_at"`
	IsRead           bool      `json:"is_read"`
}

// Dispatcher creates notifications and pushes them
type Dispatcher struct {
	db       *gorm.DB
	registry Deliverer
	relay    Publisher
	metrics  *metrics.Metrics
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithRelay publishes frames through a cross-instance relay instead of the local registry
func WithRelay(p Publisher) Option {
	return func(d *Dispatcher) { d.relay = p }
}

// WithMetrics records notification and push counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a dispatcher over db and the local registry
func NewDispatcher(db *gorm.DB, registry Deliverer, opts ...Option) *Dispatcher {
	d := &Dispatcher{db: db, registry: registry}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify persists the notification, then tries to push it. Only persistence errors are returned.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) (*models.Notification, error) {
	n := models.Notification{
		UserID:      ev.UserID,
		Type:        ev.Type,
		Title:       ev.Title,
		Message:     ev.Message,
		ReferenceID: ev.ReferenceID,
		IsRead:      false,
	}
	if ev.ReferenceType != "" {
		refType := ev.ReferenceType
		n.ReferenceType = &refType
	}
	if ev.Data != nil {
		data, err := models.NewJSON(ev.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification data: %w", err)
		}
		n.Data = data
	}

	if err := d.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}
	d.metrics.NotificationCreated(n.Type)

	d.push(ctx, &n)
	return &n, nil
}

// NewFrame builds the push payload for a stored notification
func NewFrame(n *models.Notification) Frame {
	return Frame{
		Type:             "notification",
		ID:               n.ID,
		Title:            n.Title,
		Message:          n.Message,
		NotificationType: n.Type,
		ReferenceID:      n.ReferenceID,
		ReferenceType:    n.ReferenceType,
		CreatedAt:        n.CreatedAt,
		IsRead:           n.IsRead,
	}
}

func (d *Dispatcher) push(ctx context.Context, n *models.Notification) {
	msg, err := json.Marshal(NewFrame(n))
	if err != nil {
		slog.Error("failed to encode push frame", "notification_id", n.ID, "error", err)
		d.metrics.Push(metrics.PushFailed)
		return
	}

	if d.relay != nil {
		err := d.relay.Publish(ctx, n.UserID, msg)
		if err == nil {
			d.metrics.Push(metrics.PushRelayed)
			return
		}
		slog.Warn("push relay publish failed, delivering locally", "user_id", n.UserID, "error", err)
	}

	if d.registry == nil || !d.registry.IsConnected(n.UserID) {
		d.metrics.Push(metrics.PushOffline)
		return
	}
	if d.registry.Deliver(msg, n.UserID) == 0 {
		slog.Warn("push delivery failed on every channel", "user_id", n.UserID, "notification_id", n.ID)
		d.metrics.Push(metrics.PushFailed)
		return
	}
	d.metrics.Push(metrics.PushDelivered)
}

// NotifyUsers sends one notification per recipient, skipping excludeUserID. Every
// recipient is attempted; failures are joined into the returned error.
func (d *Dispatcher) NotifyUsers(ctx context.Context, userIDs []uint64, excludeUserID uint64, ev Event) (int, error) {
	sent := 0
	var errs []error
	seen := make(map[uint64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == excludeUserID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		e := ev
		e.UserID = id
		if _, err := d.Notify(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// NotifyGroupMembers notifies every member of the group except the actor
func (d *Dispatcher) NotifyGroupMembers(ctx context.Context, groupID uint64, notificationType, title, message string, excludeUserID uint64) (int, error) {
	var memberIDs []uint64
	if err := d.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("id").
		Pluck("user_id", &memberIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to load group members: %w", err)
	}

	return d.NotifyUsers(ctx, memberIDs, excludeUserID, Event{
		Type:          notificationType,
		Title:         title,
		Message:       message,
		ReferenceID:   &groupID,
		ReferenceType: models.ReferenceExpenseGroup,
		Data:          map[string]any{"group_id": groupID},
	})
}

// NotifyListMembers notifies the list owner and every user it is shared with, except the actor
func (d *Dispatcher) NotifyListMembers(ctx context.Context, listID uint64, notificationType, title, message string, excludeUserID uint64) (int, error) {
	recipients, err := ListMemberIDs(ctx, d.db, listID)
	if err != nil {
		return 0, err
	}

	return d.NotifyUsers(ctx, recipients, excludeUserID, Event{
		Type:          notificationType,
		Title:         title,
		Message:       message,
		ReferenceID:   &listID,
		ReferenceType: models.ReferenceShoppingList,
		Data:          map[string]any{"list_id": listID},
	})
}

// ListMemberIDs returns the owner followed by the users the list is shared with
func ListMemberIDs(ctx context.Context, db *gorm.DB, listID uint64) ([]uint64, error) {
	var owners []uint64
	if err := db.WithContext(ctx).Model(&models.ShoppingList{}).
		Where("id = ?", listID).
		Pluck("owner_id", &owners).Error; err != nil {
		return nil, fmt.Errorf("failed to load list owner: %w", err)
	}

	var shared []uint64
	if err := db.WithContext(ctx).Model(&models.SharedList{}).
		Where("shopping_list_id = ?", listID).
		Order("id").
		Pluck("shared_with_id", &shared).Error; err != nil {
		return nil, fmt.Errorf("failed to load list shares: %w", err)
	}
	return append(owners, shared...), nil
}
