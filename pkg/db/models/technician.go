package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bairdservice/baird-backend/pkg/enums"
)

// Technician is a registered field technician reachable over WhatsApp.
type Technician struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string                   `gorm:"type:text;not null"`
	WhatsAppPhone      string                   `gorm:"column:whatsapp_phone;type:text;not null"`
	City               string                   `gorm:"type:text;not null"`
	VerificationStatus enums.VerificationStatus `gorm:"type:verification_status;not null;default:pending"`
	DocumentType       string                   `gorm:"type:text;not null"`
	DocumentNumber     string                   `gorm:"type:text;not null"`
	ProfilePhotoURL    *string                  `gorm:"type:text"`
	DocumentPhotoURL   *string                  `gorm:"type:text"`
	Specialties        []TechnicianSpecialty    `gorm:"foreignKey:TechnicianID"`
	CreatedAt          time.Time                `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time                `gorm:"type:timestamptz;not null;default:now()"`
}

// TechnicianSpecialty records one equipment type a technician services.
type TechnicianSpecialty struct {
	TechnicianID uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Specialty    enums.EquipmentType `gorm:"type:text;primaryKey"`
}
