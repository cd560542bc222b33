// Package dbtest opens isolated in-memory sqlite databases carrying the
// dispatch schema, plus fixture builders for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/enums"
	"github.com/bairdservice/baird-backend/pkg/security"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS technicians (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  whatsapp_phone TEXT NOT NULL,
  city TEXT NOT NULL,
  verification_status TEXT NOT NULL DEFAULT 'pending',
  document_type TEXT NOT NULL,
  document_number TEXT NOT NULL,
  profile_photo_url TEXT,
  document_photo_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS technician_specialties (
  technician_id TEXT NOT NULL,
  specialty TEXT NOT NULL,
  PRIMARY KEY (technician_id, specialty)
);`,
	`CREATE TABLE IF NOT EXISTS service_requests (
  id TEXT PRIMARY KEY,
  client_name TEXT NOT NULL,
  client_phone TEXT NOT NULL,
  equipment_type TEXT NOT NULL,
  brand TEXT NOT NULL,
  request_type TEXT NOT NULL,
  problem_description TEXT NOT NULL,
  city TEXT NOT NULL,
  zone TEXT NOT NULL,
  address TEXT NOT NULL,
  visit_window_1 TEXT NOT NULL,
  visit_window_2 TEXT NOT NULL,
  technician_payout NUMERIC NOT NULL,
  is_warranty INTEGER NOT NULL DEFAULT 0,
  serial_or_invoice TEXT,
  triage_diagnosis TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  technician_id TEXT,
  notified_at DATETIME,
  assigned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS notification_tokens (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL UNIQUE,
  service_request_id TEXT NOT NULL,
  technician_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'sent',
  sent_at DATETIME NOT NULL,
  responded_at DATETIME,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_notification_tokens_one_accepted
  ON notification_tokens (service_request_id) WHERE status = 'accepted';`,
}

// Open returns a private in-memory database limited to one connection so
// concurrent transactions serialize the way row locks would.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// TechnicianOption customizes a technician fixture.
type TechnicianOption func(*models.Technician, *[]enums.EquipmentType)

func WithCity(city string) TechnicianOption {
	return func(t *models.Technician, _ *[]enums.EquipmentType) { t.City = city }
}

func WithPhone(phone string) TechnicianOption {
	return func(t *models.Technician, _ *[]enums.EquipmentType) { t.WhatsAppPhone = phone }
}

func WithVerification(status enums.VerificationStatus) TechnicianOption {
	return func(t *models.Technician, _ *[]enums.EquipmentType) { t.VerificationStatus = status }
}

func WithSpecialties(specialties ...enums.EquipmentType) TechnicianOption {
	return func(_ *models.Technician, s *[]enums.EquipmentType) { *s = specialties }
}

func WithPhotos(profileURL, documentURL string) TechnicianOption {
	return func(t *models.Technician, _ *[]enums.EquipmentType) {
		if profileURL != "" {
			t.ProfilePhotoURL = &profileURL
		}
		if documentURL != "" {
			t.DocumentPhotoURL = &documentURL
		}
	}
}

func WithCreatedAt(ts time.Time) TechnicianOption {
	return func(t *models.Technician, _ *[]enums.EquipmentType) { t.CreatedAt = ts }
}

// MustCreateTechnician inserts a verified Bogotá fridge technician unless options say otherwise.
func MustCreateTechnician(t testing.TB, db *gorm.DB, name string, opts ...TechnicianOption) *models.Technician {
	t.Helper()
	technician := &models.Technician{
		ID:                 uuid.New(),
		Name:               name,
		WhatsAppPhone:      "3001234567",
		City:               "Bogotá",
		VerificationStatus: enums.VerificationStatusVerified,
		DocumentType:       "CC",
		DocumentNumber:     "1020304050",
		CreatedAt:          time.Now().UTC(),
	}
	specialties := []enums.EquipmentType{enums.EquipmentTypeFridge}
	for _, opt := range opts {
		opt(technician, &specialties)
	}
	if err := db.Omit("Specialties").Create(technician).Error; err != nil {
		t.Fatalf("create technician: %v", err)
	}
	for _, specialty := range specialties {
		row := models.TechnicianSpecialty{TechnicianID: technician.ID, Specialty: specialty}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("create specialty: %v", err)
		}
		technician.Specialties = append(technician.Specialties, row)
	}
	return technician
}

// MustCreateServiceRequest inserts a pending fridge repair in Bogotá; mutate lets tests adjust fields.
func MustCreateServiceRequest(t testing.TB, db *gorm.DB, mutate ...func(*models.ServiceRequest)) *models.ServiceRequest {
	t.Helper()
	request := &models.ServiceRequest{
		ID:                 uuid.New(),
		ClientName:         "María Gómez",
		ClientPhone:        "3109876543",
		EquipmentType:      enums.EquipmentTypeFridge,
		Brand:              "Samsung",
		RequestType:        enums.RequestTypeRepair,
		ProblemDescription: "No enfría y hace ruido al arrancar",
		City:               "Bogotá",
		Zone:               "Chapinero",
		Address:            "Calle 60 # 9-20",
		VisitWindow1:       "Lunes 8am-12pm",
		VisitWindow2:       "Martes 2pm-6pm",
		TechnicianPayout:   decimal.NewFromInt(150000),
		Status:             enums.ServiceRequestStatusPending,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	for _, fn := range mutate {
		fn(request)
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("create service request: %v", err)
	}
	return request
}

// MustCreateToken inserts a notification token in the given status.
func MustCreateToken(t testing.TB, db *gorm.DB, requestID, technicianID uuid.UUID, status enums.NotificationTokenStatus) *models.NotificationToken {
	t.Helper()
	value, err := security.NewAcceptanceToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	token := &models.NotificationToken{
		ID:               uuid.New(),
		Token:            value,
		ServiceRequestID: requestID,
		TechnicianID:     technicianID,
		Status:           status,
		SentAt:           time.Now().UTC(),
		CreatedAt:        time.Now().UTC(),
	}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("create notification token: %v", err)
	}
	return token
}

// MustLoadToken reloads a token by its public value.
func MustLoadToken(t testing.TB, db *gorm.DB, value string) *models.NotificationToken {
	t.Helper()
	var token models.NotificationToken
	if err := db.Where("token = ?", value).First(&token).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	return &token
}

// MustLoadServiceRequest reloads a request by id.
func MustLoadServiceRequest(t testing.TB, db *gorm.DB, id uuid.UUID) *models.ServiceRequest {
	t.Helper()
	var request models.ServiceRequest
	if err := db.Where("id = ?", id).First(&request).Error; err != nil {
		t.Fatalf("load service request: %v", err)
	}
	return &request
}
