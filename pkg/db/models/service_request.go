package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bairdservice/baird-backend/pkg/enums"
)

// ServiceRequest is a client's repair request awaiting or holding a technician.
type ServiceRequest struct {
	ID                 uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClientName         string                     `gorm:"type:text;not null"`
	ClientPhone        string                     `gorm:"type:text;not null"`
	EquipmentType      enums.EquipmentType        `gorm:"type:text;not null"`
	Brand              string                     `gorm:"type:text;not null"`
	RequestType        enums.RequestType          `gorm:"type:text;not null"`
	ProblemDescription string                     `gorm:"type:text;not null"`
	City               string                     `gorm:"type:text;not null"`
	Zone               string                     `gorm:"type:text;not null"`
	Address            string                     `gorm:"type:text;not null"`
	VisitWindow1       string                     `gorm:"column:visit_window_1;type:text;not null"`
	VisitWindow2       string                     `gorm:"column:visit_window_2;type:text;not null"`
	TechnicianPayout   decimal.Decimal            `gorm:"type:numeric(12,0);not null"`
	IsWarranty         bool                       `gorm:"not null;default:false"`
	SerialOrInvoice    *string                    `gorm:"type:text"`
	TriageDiagnosis    *string                    `gorm:"type:text"`
	Status             enums.ServiceRequestStatus `gorm:"type:service_request_status;not null;default:pending"`
	TechnicianID       *uuid.UUID                 `gorm:"type:uuid"`
	NotifiedAt         *time.Time                 `gorm:"type:timestamptz"`
	AssignedAt         *time.Time                 `gorm:"type:timestamptz"`
	CreatedAt          time.Time                  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time                  `gorm:"type:timestamptz;not null;default:now()"`
}

// Assigned reports whether a technician already holds the request.
func (r *ServiceRequest) Assigned() bool {
	return r != nil && r.TechnicianID != nil && *r.TechnicianID != uuid.Nil
}
