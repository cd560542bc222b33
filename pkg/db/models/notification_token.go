package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bairdservice/baird-backend/pkg/enums"
)

// NotificationToken binds one offer of a service request to one technician.
type NotificationToken struct {
	ID               uuid.UUID                     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Token            string                        `gorm:"type:text;not null;uniqueIndex"`
	ServiceRequestID uuid.UUID                     `gorm:"type:uuid;not null"`
	TechnicianID     uuid.UUID                     `gorm:"type:uuid;not null"`
	Status           enums.NotificationTokenStatus `gorm:"type:notification_token_status;not null;default:sent"`
	SentAt           time.Time                     `gorm:"type:timestamptz;not null"`
	RespondedAt      *time.Time                    `gorm:"type:timestamptz"`
	CreatedAt        time.Time                     `gorm:"type:timestamptz;not null;default:now()"`
}
