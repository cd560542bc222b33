package dispatch

import (
	"strconv"
	"strings"

	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/money"
	"github.com/bairdservice/baird-backend/pkg/textutil"
)

// OfferMessage renders the WhatsApp text a technician receives for a new request.
func OfferMessage(request *models.ServiceRequest, acceptURL string, previewChars int) string {
	lines := []string{
		"🔧 *Nueva solicitud — Baird Service*",
		"",
		"📋 *Equipo:* " + strings.TrimSpace(request.EquipmentType.String()+" "+request.Brand),
		"📝 *Problema:* " + textutil.Preview(request.ProblemDescription, previewChars),
	}
	if request.TriageDiagnosis != nil && strings.TrimSpace(*request.TriageDiagnosis) != "" {
		lines = append(lines, "🤖 *Diagnóstico IA:* "+strings.TrimSpace(*request.TriageDiagnosis))
	}
	lines = append(lines,
		"",
		"📍 *Ubicación del servicio:*",
		"   "+request.Address,
		"   "+request.Zone+", "+request.City,
		"",
		"🕐 *Horarios propuestos por el cliente:*",
		"   1️⃣ "+request.VisitWindow1,
		"   2️⃣ "+request.VisitWindow2,
		"",
		"💰 *Tu pago por este servicio: "+money.FormatPayout(request.TechnicianPayout)+"*",
		"",
		"⚡ *El primer técnico en aceptar gana el servicio.*",
		"👇 Toca el link para ver los detalles y aceptar:",
		acceptURL,
	)
	return strings.Join(lines, "\n")
}

// SummaryMessage is the human-readable result returned to the caller that triggered dispatch.
func SummaryMessage(notified int) string {
	if notified == 0 {
		return "No se encontraron técnicos disponibles en la zona por ahora"
	}
	if notified == 1 {
		return "1 técnico notificado por WhatsApp"
	}
	return strconv.Itoa(notified) + " técnicos notificados por WhatsApp"
}
