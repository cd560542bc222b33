package acceptance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bairdservice/baird-backend/internal/notifications"
	"github.com/bairdservice/baird-backend/internal/servicerequests"
	"github.com/bairdservice/baird-backend/internal/technicians"
	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/db/dbtest"
	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/enums"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

type textMessage struct {
	phone string
	body  string
}

type imageMessage struct {
	phone   string
	url     string
	caption string
}

type recordingMessenger struct {
	mu         sync.Mutex
	texts      []textMessage
	images     []imageMessage
	failPhones map[string]bool
}

func (m *recordingMessenger) SendText(ctx context.Context, recipientPhone, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPhones[recipientPhone] {
		return errors.New("delivery failed")
	}
	m.texts = append(m.texts, textMessage{phone: recipientPhone, body: body})
	return nil
}

func (m *recordingMessenger) SendImage(ctx context.Context, recipientPhone, imageURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = append(m.images, imageMessage{phone: recipientPhone, url: imageURL, caption: caption})
	return nil
}

func (m *recordingMessenger) textsTo(phone string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bodies []string
	for _, msg := range m.texts {
		if msg.phone == phone {
			bodies = append(bodies, msg.body)
		}
	}
	return bodies
}

type harness struct {
	db        *gorm.DB
	svc       *Service
	messenger *recordingMessenger
}

// cancelOnLoad cancels the caller's context the first time a technician is
// loaded, which happens only after the claim has committed.
type cancelOnLoad struct {
	technicianLoader
	cancel context.CancelFunc
}

func (c cancelOnLoad) FindByID(ctx context.Context, id uuid.UUID) (*models.Technician, error) {
	c.cancel()
	return c.technicianLoader.FindByID(ctx, id)
}

func newHarness(t *testing.T, opts ...func(*ServiceParams)) harness {
	t.Helper()
	conn := dbtest.Open(t)
	messenger := &recordingMessenger{failPhones: map[string]bool{}}
	params := ServiceParams{
		TransactionRunner: db.Wrap(conn),
		Requests:          servicerequests.NewRepository(conn),
		Tokens:            notifications.NewRepository(conn),
		Technicians:       technicians.NewRepository(conn),
		Messenger:         messenger,
		WhatsApp:          config.WhatsAppConfig{CountryCode: "57"},
		Dispatch:          config.DispatchConfig{WinnerPreviewChars: 150, PagePreviewChars: 200},
		Logger:            logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return harness{db: conn, svc: svc, messenger: messenger}
}

func TestAcceptExactlyOneWinner(t *testing.T) {
	h := newHarness(t)
	request := dbtest.MustCreateServiceRequest(t, h.db)

	const contenders = 6
	tokens := make([]*models.NotificationToken, 0, contenders)
	for i := 0; i < contenders; i++ {
		technician := dbtest.MustCreateTechnician(t, h.db, "Técnico", dbtest.WithPhone(fmt.Sprintf("30000000%02d", i)))
		tokens = append(tokens, dbtest.MustCreateToken(t, h.db, request.ID, technician.ID, enums.NotificationTokenStatusSent))
	}

	results := make([]*Result, contenders)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, value string) {
			defer wg.Done()
			<-start
			result, err := h.svc.Accept(context.Background(), value)
			if err != nil {
				t.Errorf("accept %d: %v", i, err)
				return
			}
			results[i] = result
		}(i, token.Token)
	}
	close(start)
	wg.Wait()
	h.svc.Wait()

	winners := 0
	var winnerToken *models.NotificationToken
	for i, result := range results {
		require.NotNil(t, result)
		if result.Won {
			winners++
			winnerToken = tokens[i]
			continue
		}
		require.Contains(t, []Outcome{OutcomeTaken, OutcomeUnavailable}, result.Outcome)
	}
	require.Equal(t, 1, winners)

	reloaded := dbtest.MustLoadServiceRequest(t, h.db, request.ID)
	require.Equal(t, enums.ServiceRequestStatusAssigned, reloaded.Status)
	require.NotNil(t, reloaded.TechnicianID)
	require.Equal(t, winnerToken.TechnicianID, *reloaded.TechnicianID)

	accepted := 0
	for _, token := range tokens {
		status := dbtest.MustLoadToken(t, h.db, token.Token).Status
		if status == enums.NotificationTokenStatusAccepted {
			accepted++
			continue
		}
		require.Equal(t, enums.NotificationTokenStatusInvalidated, status)
	}
	require.Equal(t, 1, accepted)
}

func TestAcceptWinnerNotifiesTechnicianAndClient(t *testing.T) {
	h := newHarness(t)
	request := dbtest.MustCreateServiceRequest(t, h.db)
	winner := dbtest.MustCreateTechnician(t, h.db, "Ana Ruiz",
		dbtest.WithPhone("3001112233"),
		dbtest.WithPhotos("https://cdn.baird.test/ana.jpg", "https://cdn.baird.test/ana-doc.jpg"))
	other := dbtest.MustCreateTechnician(t, h.db, "Luis", dbtest.WithPhone("3004445566"))
	token := dbtest.MustCreateToken(t, h.db, request.ID, winner.ID, enums.NotificationTokenStatusSent)
	sibling := dbtest.MustCreateToken(t, h.db, request.ID, other.ID, enums.NotificationTokenStatusSent)

	result, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.True(t, result.Won)
	require.Equal(t, OutcomeWon, result.Outcome)
	require.Equal(t, "¡Servicio asignado exitosamente!", result.Message)

	winnerTexts := h.messenger.textsTo("3001112233")
	require.Len(t, winnerTexts, 1)
	require.Contains(t, winnerTexts[0], "Lo lograste, Ana Ruiz")
	require.Contains(t, winnerTexts[0], request.ClientPhone)
	require.Contains(t, winnerTexts[0], "$150.000 COP")

	clientTexts := h.messenger.textsTo(request.ClientPhone)
	require.Len(t, clientTexts, 1)
	require.Contains(t, clientTexts[0], "+573001112233")
	require.Contains(t, clientTexts[0], "CC 1020304050 ✅ Verificado por Baird")

	require.Len(t, h.messenger.images, 2)
	require.Equal(t, "https://cdn.baird.test/ana.jpg", h.messenger.images[0].url)
	require.Equal(t, "https://cdn.baird.test/ana-doc.jpg", h.messenger.images[1].url)

	require.Equal(t, enums.NotificationTokenStatusAccepted, dbtest.MustLoadToken(t, h.db, token.Token).Status)
	require.Equal(t, enums.NotificationTokenStatusInvalidated, dbtest.MustLoadToken(t, h.db, sibling.Token).Status)
	require.Empty(t, h.messenger.textsTo("3004445566"))
}

func TestAcceptWinnerNotificationFailuresDoNotUndoAssignment(t *testing.T) {
	h := newHarness(t)
	request := dbtest.MustCreateServiceRequest(t, h.db)
	winner := dbtest.MustCreateTechnician(t, h.db, "Ana", dbtest.WithPhone("3001112233"),
		dbtest.WithPhotos("https://cdn.baird.test/ana.jpg", ""))
	token := dbtest.MustCreateToken(t, h.db, request.ID, winner.ID, enums.NotificationTokenStatusSent)
	h.messenger.failPhones["3001112233"] = true
	h.messenger.failPhones[request.ClientPhone] = true

	result, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.True(t, result.Won)
	require.Len(t, h.messenger.images, 1)

	reloaded := dbtest.MustLoadServiceRequest(t, h.db, request.ID)
	require.Equal(t, winner.ID, *reloaded.TechnicianID)
}

func TestAcceptWinnerNotificationsSurviveCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, func(p *ServiceParams) {
		p.Technicians = cancelOnLoad{technicianLoader: p.Technicians, cancel: cancel}
	})
	request := dbtest.MustCreateServiceRequest(t, h.db)
	winner := dbtest.MustCreateTechnician(t, h.db, "Ana", dbtest.WithPhone("3001112233"),
		dbtest.WithPhotos("https://cdn.baird.test/ana.jpg", ""))
	token := dbtest.MustCreateToken(t, h.db, request.ID, winner.ID, enums.NotificationTokenStatusSent)

	result, err := h.svc.Accept(ctx, token.Token)
	require.NoError(t, err)
	require.True(t, result.Won)
	require.Error(t, ctx.Err())

	require.Len(t, h.messenger.textsTo("3001112233"), 1)
	require.Len(t, h.messenger.textsTo(request.ClientPhone), 1)
	require.Len(t, h.messenger.images, 1)
}

func TestAcceptCancelledRequestIsUnavailable(t *testing.T) {
	h := newHarness(t)
	technician := dbtest.MustCreateTechnician(t, h.db, "Ana", dbtest.WithPhone("3001112233"))
	request := dbtest.MustCreateServiceRequest(t, h.db, func(r *models.ServiceRequest) {
		r.Status = enums.ServiceRequestStatusCancelled
	})
	token := dbtest.MustCreateToken(t, h.db, request.ID, technician.ID, enums.NotificationTokenStatusSent)

	result, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.False(t, result.Won)
	require.Equal(t, OutcomeUnavailable, result.Outcome)
	h.svc.Wait()

	reloaded := dbtest.MustLoadServiceRequest(t, h.db, request.ID)
	require.Equal(t, enums.ServiceRequestStatusCancelled, reloaded.Status)
	require.Nil(t, reloaded.TechnicianID)
	require.Equal(t, enums.NotificationTokenStatusInvalidated, dbtest.MustLoadToken(t, h.db, token.Token).Status)
	require.Empty(t, h.messenger.texts)
}

func TestAcceptRepeatedWinIsIdempotent(t *testing.T) {
	h := newHarness(t)
	request := dbtest.MustCreateServiceRequest(t, h.db)
	winner := dbtest.MustCreateTechnician(t, h.db, "Ana")
	token := dbtest.MustCreateToken(t, h.db, request.ID, winner.ID, enums.NotificationTokenStatusSent)

	first, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.True(t, first.Won)
	sent := len(h.messenger.texts)

	again, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.False(t, again.Won)
	require.Equal(t, OutcomeAlreadyAccepted, again.Outcome)
	require.Equal(t, "¡Ya aceptaste este servicio!", again.Message)
	require.Len(t, h.messenger.texts, sent)
	require.Equal(t, winner.ID, *dbtest.MustLoadServiceRequest(t, h.db, request.ID).TechnicianID)
}

func TestAcceptLateTechnicianIsTakenAndNotified(t *testing.T) {
	h := newHarness(t)
	winner := dbtest.MustCreateTechnician(t, h.db, "Ana")
	late := dbtest.MustCreateTechnician(t, h.db, "Luis", dbtest.WithPhone("3009998877"))
	assignedAt := time.Now().UTC()
	request := dbtest.MustCreateServiceRequest(t, h.db, func(r *models.ServiceRequest) {
		r.Status = enums.ServiceRequestStatusAssigned
		r.TechnicianID = &winner.ID
		r.AssignedAt = &assignedAt
	})
	token := dbtest.MustCreateToken(t, h.db, request.ID, late.ID, enums.NotificationTokenStatusSent)

	result, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.False(t, result.Won)
	require.Equal(t, OutcomeTaken, result.Outcome)
	require.Equal(t, "Este servicio ya fue tomado por otro técnico", result.Message)

	h.svc.Wait()
	texts := h.messenger.textsTo("3009998877")
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Servicio no disponible")

	require.Equal(t, enums.NotificationTokenStatusInvalidated, dbtest.MustLoadToken(t, h.db, token.Token).Status)
	require.Equal(t, winner.ID, *dbtest.MustLoadServiceRequest(t, h.db, request.ID).TechnicianID)

	again, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.False(t, again.Won)
	require.Equal(t, OutcomeUnavailable, again.Outcome)
	h.svc.Wait()
	require.Len(t, h.messenger.textsTo("3009998877"), 1)
}

func TestAcceptSameTechnicianRaceIsAlreadyAccepted(t *testing.T) {
	h := newHarness(t)
	technician := dbtest.MustCreateTechnician(t, h.db, "Ana")
	request := dbtest.MustCreateServiceRequest(t, h.db, func(r *models.ServiceRequest) {
		r.Status = enums.ServiceRequestStatusAssigned
		r.TechnicianID = &technician.ID
	})
	token := dbtest.MustCreateToken(t, h.db, request.ID, technician.ID, enums.NotificationTokenStatusSent)

	result, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyAccepted, result.Outcome)
	require.Equal(t, enums.NotificationTokenStatusSent, dbtest.MustLoadToken(t, h.db, token.Token).Status)
	h.svc.Wait()
	require.Empty(t, h.messenger.texts)
}

func TestAcceptUnknownTokenDoesNotMutate(t *testing.T) {
	h := newHarness(t)
	technician := dbtest.MustCreateTechnician(t, h.db, "Ana")
	request := dbtest.MustCreateServiceRequest(t, h.db)
	token := dbtest.MustCreateToken(t, h.db, request.ID, technician.ID, enums.NotificationTokenStatusSent)

	for _, value := range []string{"ffffffffffffffffffffffffffffffff", "not-a-token", ""} {
		result, err := h.svc.Accept(context.Background(), value)
		require.NoError(t, err)
		require.False(t, result.Won)
		require.Equal(t, OutcomeInvalidToken, result.Outcome)
	}

	reloaded := dbtest.MustLoadServiceRequest(t, h.db, request.ID)
	require.Nil(t, reloaded.TechnicianID)
	require.Equal(t, enums.ServiceRequestStatusPending, reloaded.Status)
	require.Equal(t, enums.NotificationTokenStatusSent, dbtest.MustLoadToken(t, h.db, token.Token).Status)
	require.Empty(t, h.messenger.texts)
}

func TestAcceptErrorTokenIsUnavailable(t *testing.T) {
	h := newHarness(t)
	technician := dbtest.MustCreateTechnician(t, h.db, "Ana")
	request := dbtest.MustCreateServiceRequest(t, h.db)
	token := dbtest.MustCreateToken(t, h.db, request.ID, technician.ID, enums.NotificationTokenStatusError)

	result, err := h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)
	require.Equal(t, OutcomeUnavailable, result.Outcome)
	require.Nil(t, dbtest.MustLoadServiceRequest(t, h.db, request.ID).TechnicianID)
}

func TestOfferView(t *testing.T) {
	h := newHarness(t)
	technician := dbtest.MustCreateTechnician(t, h.db, "Ana")
	request := dbtest.MustCreateServiceRequest(t, h.db)
	token := dbtest.MustCreateToken(t, h.db, request.ID, technician.ID, enums.NotificationTokenStatusSent)

	view, err := h.svc.Offer(context.Background(), token.Token)
	require.NoError(t, err)
	require.True(t, view.Available)
	require.False(t, view.Accepted)
	require.Equal(t, "Ana", view.TechnicianName)
	require.Equal(t, "150.000", view.Payout)
	require.Equal(t, "Nevera", view.Equipment)

	_, err = h.svc.Accept(context.Background(), token.Token)
	require.NoError(t, err)

	view, err = h.svc.Offer(context.Background(), token.Token)
	require.NoError(t, err)
	require.False(t, view.Available)
	require.True(t, view.Accepted)

	_, err = h.svc.Offer(context.Background(), "ffffffffffffffffffffffffffffffff")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
