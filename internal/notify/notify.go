// Package notify delivers worker output to subscribers. The worker only
// depends on the Notifier interface so delivery transport stays swappable
// and mockable.
package notify

import "context"

// Notifier delivers rendered schedule payloads to users.
type Notifier interface {
	// SendMessage delivers an HTML-formatted message to a user.
	SendMessage(ctx context.Context, userID int64, text string) error
	// RefreshMainMenu re-sends the user's main menu after notifications so
	// the menu message stays last in the chat. Applied once per user per
	// tick.
	RefreshMainMenu(ctx context.Context, userID int64) error
}
