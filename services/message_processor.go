package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nodonorteit/wspbot/models"
)

// MessageSender loops automatic replies back out through the session
// registry.
type MessageSender interface {
	SendMessage(ctx context.Context, tenantID string, msg models.OutboundMessage) (bool, error)
}

// StatusSink receives session status changes observed on the webhook path.
type StatusSink interface {
	UpdateSessionStatus(tenantID string, status models.SessionStatus)
}

// keywordGroup is one set of trigger substrings and its automatic reply.
// Groups are checked in declaration order; at most the first match replies.
type keywordGroup struct {
	triggers []string
	reply    string
}

var keywordGroups = []keywordGroup{
	{
		triggers: []string{"hola", "hi", "hello"},
		reply:    "👋 ¡Hola! Soy un bot de WhatsApp. ¿En qué puedo ayudarte? Usa /help para ver comandos disponibles.",
	},
	{
		triggers: []string{"gracias", "thanks"},
		reply:    "😊 ¡De nada! Estoy aquí para ayudarte.",
	},
	{
		triggers: []string{"bot"},
		reply:    "🤖 Sí, soy un bot de WhatsApp. Usa /help para ver qué puedo hacer por ti.",
	},
}

const bookingUsage = `📅 *Reservar Turno*

Uso: ` + "`/turno [fecha] [hora] [servicio]`" + `

Ejemplos:
• ` + "`/turno mañana 10:00 consulta`" + `
• ` + "`/turno 2024-01-15 14:30 emergencia`" + `

📋 *Servicios disponibles:*
• consulta - Consulta general
• emergencia - Atención de emergencia
• seguimiento - Control de seguimiento
• cita - Cita médica`

const cancelUsage = "❌ Uso: `/cancelar [ID del turno]`\n💡 Usa `/myturnos` para ver tus turnos y sus IDs"

const helpText = `🤖 *Comandos disponibles:*

/turno - Reservar un turno
/myturnos - Ver mis turnos
/horarios - Ver horarios disponibles
/cancelar - Cancelar un turno
/help - Mostrar esta ayuda

*Palabras clave:*
- 'hola' → Saludo automático
- 'gracias' → Respuesta de cortesía
- 'bot' → Información sobre el bot`

// MessageProcessor turns one inbound webhook payload into zero or more side
// effects: an automatic reply, a forwarded scheduling action, or nothing.
// Every stage contains its own errors; one malformed message never blocks
// later, unrelated messages.
type MessageProcessor struct {
	sender   MessageSender
	statuses StatusSink
	turns    TurnService
}

// NewMessageProcessor wires the processor to its collaborators.
func NewMessageProcessor(sender MessageSender, statuses StatusSink, turns TurnService) *MessageProcessor {
	return &MessageProcessor{sender: sender, statuses: statuses, turns: turns}
}

// ProcessIncomingMessage runs the single-pass, best-effort pipeline over one
// webhook payload.
func (p *MessageProcessor) ProcessIncomingMessage(ctx context.Context, tenantID string, payload models.WebhookPayload) {
	if payload.Event == models.EventSessionStatus {
		next := StatusFromWAHA(payload.Status)
		zap.L().Info("session status event",
			zap.String("tenantId", tenantID),
			zap.String("status", string(next)))
		p.statuses.UpdateSessionStatus(tenantID, next)
		return
	}

	message := normalize(tenantID, payload)

	zap.L().Info("processing incoming message",
		zap.String("tenantId", tenantID),
		zap.String("messageId", message.ID),
		zap.String("type", string(message.MessageType)))

	switch message.MessageType {
	case models.MessageTypeText:
		p.processTextMessage(ctx, message)
	case models.MessageTypeImage:
		p.processImageMessage(message)
	case models.MessageTypeFile:
		p.processFileMessage(message)
	default:
		zap.L().Warn("unknown message type",
			zap.String("tenantId", tenantID),
			zap.String("type", string(message.MessageType)))
	}
}

// normalize builds an InboundMessage from the raw payload, defaulting
// missing fields.
func normalize(tenantID string, payload models.WebhookPayload) models.InboundMessage {
	id := payload.ID
	if id == "" {
		id = "msg_" + uuid.New().String()
	}
	ts := time.Now()
	if payload.Timestamp > 0 {
		ts = time.Unix(payload.Timestamp, 0)
	}
	msgType := models.MessageType(payload.MessageType)
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	return models.InboundMessage{
		ID:          id,
		TenantID:    tenantID,
		ChatID:      payload.ChatID,
		Body:        payload.Body,
		From:        payload.From,
		To:          payload.To,
		Timestamp:   ts,
		MessageType: msgType,
		Status:      "delivered",
	}
}

func (p *MessageProcessor) processTextMessage(ctx context.Context, message models.InboundMessage) {
	if strings.HasPrefix(message.Body, "/") {
		p.processCommand(ctx, message)
		return
	}
	p.processKeywords(ctx, message)
}

// processImageMessage is a deliberate stub; real handling belongs to an
// external collaborator.
func (p *MessageProcessor) processImageMessage(message models.InboundMessage) {
	zap.L().Info("image message received, no handler attached",
		zap.String("tenantId", message.TenantID),
		zap.String("from", message.From))
}

// processFileMessage is a deliberate stub like processImageMessage.
func (p *MessageProcessor) processFileMessage(message models.InboundMessage) {
	zap.L().Info("file message received, no handler attached",
		zap.String("tenantId", message.TenantID),
		zap.String("from", message.From))
}

func (p *MessageProcessor) processCommand(ctx context.Context, message models.InboundMessage) {
	fields := strings.Fields(message.Body)
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	zap.L().Info("processing command",
		zap.String("tenantId", message.TenantID),
		zap.String("command", command),
		zap.Strings("args", args))

	switch command {
	case "turno", "reservar":
		if len(args) < 2 {
			p.sendAutomaticResponse(ctx, message, bookingUsage)
			return
		}
		p.forwardToTurnService(ctx, message, ActionBookTurn, args)
	case "myturnos", "misturnos":
		p.forwardToTurnService(ctx, message, ActionGetMyTurns, nil)
	case "horarios":
		p.forwardToTurnService(ctx, message, ActionGetAvailableTimes, args)
	case "cancelar":
		if len(args) < 1 {
			p.sendAutomaticResponse(ctx, message, cancelUsage)
			return
		}
		p.forwardToTurnService(ctx, message, ActionCancelTurn, args)
	case "help":
		p.sendAutomaticResponse(ctx, message, helpText)
	default:
		p.sendAutomaticResponse(ctx, message,
			fmt.Sprintf("❌ Comando '%s' no encontrado. Usa /help para ver comandos disponibles.", command))
	}
}

func (p *MessageProcessor) processKeywords(ctx context.Context, message models.InboundMessage) {
	text := strings.ToLower(message.Body)
	for _, group := range keywordGroups {
		for _, trigger := range group.triggers {
			if strings.Contains(text, trigger) {
				p.sendAutomaticResponse(ctx, message, group.reply)
				return
			}
		}
	}
}

func (p *MessageProcessor) sendAutomaticResponse(ctx context.Context, message models.InboundMessage, text string) {
	ok, err := p.sender.SendMessage(ctx, message.TenantID, models.NewTextMessage(message.From, text))
	if err != nil {
		zap.L().Error("failed to send automatic response",
			zap.String("tenantId", message.TenantID),
			zap.String("to", message.From),
			zap.Error(err))
		return
	}
	if !ok {
		zap.L().Warn("automatic response rejected by gateway",
			zap.String("tenantId", message.TenantID),
			zap.String("to", message.From))
	}
}

func (p *MessageProcessor) forwardToTurnService(ctx context.Context, message models.InboundMessage, action TurnAction, args []string) {
	fwd := TurnForward{
		TenantID: message.TenantID,
		Message:  message,
		Action:   action,
	}
	if args != nil {
		fwd.Data = map[string]interface{}{"args": args}
	}

	zap.L().Info("forwarding to turns service",
		zap.String("tenantId", message.TenantID),
		zap.String("action", string(action)))

	if err := p.turns.Forward(ctx, fwd); err != nil {
		zap.L().Error("failed to forward to turns service",
			zap.String("tenantId", message.TenantID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
