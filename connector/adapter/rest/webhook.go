// Package rest exposes the webhook surface the Cognitive Voice Gateway
// delivers call lifecycle events to, plus the health and journal endpoints.
package rest

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/application"
	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
	pkgError "github.com/VIER-CognitiveVoice/cvg-connect/pkg/error"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/utils"
	"github.com/VIER-CognitiveVoice/cvg-connect/validations"
)

const journalPageSize = 200

type Webhook struct {
	bearer  string
	Service *application.InboundService
	Journal domain.JournalRepository
}

func InitRestWebhook(app fiber.Router, token string, service *application.InboundService, journal domain.JournalRepository) Webhook {
	handler := Webhook{bearer: "Bearer " + token, Service: service, Journal: journal}

	app.Post("/session", handler.Session)
	app.Post("/message", handler.Message)
	app.Post("/answer", handler.Answer)
	app.Post("/inactivity", handler.Inactivity)
	app.Post("/terminated", handler.Terminated)
	app.Post("/recording", handler.Recording)
	app.Get("/health", handler.Health)
	app.Get("/dialog/:dialog_id/journal", handler.DialogJournal)

	return handler
}

// Session is the only endpoint the Gateway awaits a decision on: the call is
// accepted only after the engine processed the start intent.
func (controller *Webhook) Session(c *fiber.Ctx) error {
	request, body := controller.acceptCallback(c)

	controller.Service.Process(c.UserContext(), &application.Inbound{
		Kind:          "session",
		Text:          controller.Service.StartIntent(),
		Callback:      request,
		RawBody:       body,
		ForceBlocking: true,
	})

	return c.JSON(fiber.Map{"action": "ACCEPT"})
}

func (controller *Webhook) Message(c *fiber.Ctx) error {
	request, body := controller.acceptCallback(c)

	controller.Service.Process(c.UserContext(), &application.Inbound{
		Kind:     "message",
		Text:     request.Text,
		Callback: request,
		RawBody:  body,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (controller *Webhook) Answer(c *fiber.Ctx) error {
	request, body := controller.acceptCallback(c)
	utils.PanicIfNeeded(validations.ValidateAnswer(c.UserContext(), request))

	var text string
	switch request.Type.Name {
	case domain.AnswerTypeMultipleChoice:
		text = request.Type.ID
	case domain.AnswerTypeNumber:
		text = request.Type.Value.String()
	case domain.AnswerTypeTimeout:
		text = domain.IntentInactivity
	}

	controller.Service.Process(c.UserContext(), &application.Inbound{
		Kind:     "answer",
		Text:     text,
		Callback: request,
		RawBody:  body,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (controller *Webhook) Inactivity(c *fiber.Ctx) error {
	request, body := controller.acceptCallback(c)

	controller.Service.Process(c.UserContext(), &application.Inbound{
		Kind:     "inactivity",
		Text:     domain.IntentInactivity,
		Callback: request,
		RawBody:  body,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (controller *Webhook) Terminated(c *fiber.Ctx) error {
	request, body := controller.acceptCallback(c)

	controller.Service.Process(c.UserContext(), &application.Inbound{
		Kind:     "terminated",
		Text:     domain.IntentTerminated,
		Callback: request,
		RawBody:  body,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// Recording never reaches the engine; the status is journaled and echoed
// back for observability.
func (controller *Webhook) Recording(c *fiber.Ctx) error {
	request, body := controller.acceptCallback(c)

	if controller.Journal != nil {
		event := &domain.DialogEvent{
			DialogID:  request.DialogID,
			Direction: domain.DirectionInbound,
			Kind:      "recording",
			Payload:   string(body),
		}
		if err := controller.Journal.Append(c.UserContext(), event); err != nil {
			logrus.WithError(err).Warnf("[JOURNAL] Could not record recording status for dialog %s", request.DialogID)
		}
	}

	return c.JSON(fiber.Map{
		"status":      request.Status,
		"recordingId": request.RecordingID,
	})
}

func (controller *Webhook) Health(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "connector is running",
	})
}

func (controller *Webhook) DialogJournal(c *fiber.Ctx) error {
	controller.requireBearer(c)

	if controller.Journal == nil {
		panic(pkgError.NotFoundError("dialog journal is not enabled"))
	}

	events, err := controller.Journal.ListByDialog(c.UserContext(), c.Params("dialog_id"), journalPageSize)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch dialog journal",
		Results: events,
	})
}

// acceptCallback runs the validation chain shared by all webhook endpoints
// and returns the parsed request plus a stable copy of the raw body.
func (controller *Webhook) acceptCallback(c *fiber.Ctx) (*domain.CallbackRequest, []byte) {
	controller.requireBearer(c)

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		panic(pkgError.UnsupportedMediaError("content-type is not supported, use application/json"))
	}

	// The fasthttp buffer is reused once the handler returns; deferred
	// processing needs its own copy.
	body := append([]byte(nil), c.Body()...)

	var request domain.CallbackRequest
	if err := json.Unmarshal(body, &request); err != nil {
		panic(pkgError.ValidationError("body is not valid json"))
	}

	utils.PanicIfNeeded(validations.ValidateCallback(c.UserContext(), &request))
	return &request, body
}

func (controller *Webhook) requireBearer(c *fiber.Ctx) {
	if c.Get(fiber.HeaderAuthorization) != controller.bearer {
		panic(pkgError.UnauthorizedError("bot token is invalid"))
	}
}
