package acceptance

import (
	"strings"

	"github.com/bairdservice/baird-backend/internal/whatsapp"
	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/money"
	"github.com/bairdservice/baird-backend/pkg/textutil"
)

const loserMessage = "❌ *Servicio no disponible*\n\nEste servicio ya fue asignado a otro técnico. ¡Sigue atento a nuevas solicitudes! 💪"

// WinnerMessage gives the assigned technician the client's contact details.
func WinnerMessage(technician *models.Technician, request *models.ServiceRequest, previewChars int) string {
	return strings.Join([]string{
		"✅ *¡Servicio asignado! Lo lograste, " + technician.Name + ".*",
		"",
		"👤 *Cliente:* " + request.ClientName,
		"📱 *Teléfono:* " + request.ClientPhone,
		"📍 *Dirección:* " + request.Address,
		"   " + request.Zone + ", " + request.City,
		"📋 *Equipo:* " + strings.TrimSpace(request.EquipmentType.String()+" "+request.Brand),
		"📝 *Problema:* " + textutil.Preview(request.ProblemDescription, previewChars),
		"",
		"🕐 *Horarios propuestos por el cliente:*",
		"   1️⃣ " + request.VisitWindow1,
		"   2️⃣ " + request.VisitWindow2,
		"",
		"Confirma el horario definitivo directamente con el cliente por WhatsApp.",
		"",
		"💰 *Tu pago: " + money.FormatPayout(request.TechnicianPayout) + "*",
	}, "\n")
}

// ClientMessage introduces the assigned technician to the client.
func ClientMessage(technician *models.Technician, request *models.ServiceRequest, countryCode string) string {
	name := "Asignado"
	phone := ""
	if technician != nil {
		name = technician.Name
		phone = technician.WhatsAppPhone
	}
	lines := []string{
		"🎉 *¡Tu técnico ha sido asignado — Baird Service!*",
		"",
		"👨‍🔧 *Técnico:* " + name,
		"📱 *WhatsApp:* " + whatsapp.DisplayPhone(phone, countryCode),
	}
	if technician != nil && technician.DocumentType != "" {
		lines = append(lines, "🆔 *Documento:* "+technician.DocumentType+" "+technician.DocumentNumber+" ✅ Verificado por Baird")
	}
	lines = append(lines,
		"",
		"🕐 *Tus horarios propuestos:*",
		"   1️⃣ "+request.VisitWindow1,
		"   2️⃣ "+request.VisitWindow2,
		"",
		"Coordina el horario definitivo con tu técnico por WhatsApp.",
		"",
		"💰 *Valor del servicio: "+money.FormatPayout(request.TechnicianPayout)+"*",
	)
	return strings.Join(lines, "\n")
}

func profilePhotoCaption(name string) string {
	return "📸 Foto de " + name + " — tu técnico asignado"
}

const documentPhotoCaption = "🪪 Documento de identidad verificado por Baird Service"
