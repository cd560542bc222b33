package enums

// NotificationTokenStatus maps to the notification_token_status enum in Postgres.
type NotificationTokenStatus string

const (
	NotificationTokenStatusSent        NotificationTokenStatus = "sent"
	NotificationTokenStatusAccepted    NotificationTokenStatus = "accepted"
	NotificationTokenStatusInvalidated NotificationTokenStatus = "invalidated"
	NotificationTokenStatusError       NotificationTokenStatus = "error"
)

func (s NotificationTokenStatus) String() string {
	return string(s)
}

// Terminal reports whether the token has left the sent state.
func (s NotificationTokenStatus) Terminal() bool {
	return s != NotificationTokenStatusSent
}
