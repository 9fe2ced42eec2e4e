package application

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/dialogbusy"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/taskrunner"
)

// Inbound is one validated webhook callback ready for processing.
type Inbound struct {
	// Kind names the webhook endpoint that received the callback; used for
	// the journal trail.
	Kind string
	// Text is the canonical text derived for the endpoint (start intent,
	// verbatim utterance, answer intent or lifecycle marker).
	Text     string
	Callback *domain.CallbackRequest
	RawBody  []byte
	// ForceBlocking overrides the deferral flag; the session callback must
	// answer the Gateway only after the engine decided.
	ForceBlocking bool
}

// InboundService turns accepted callbacks into canonical events and feeds
// them to the dialogue engine, applying admission control and the deferral
// policy. Engine failures never travel back to the Gateway: the callback is
// acknowledged as handled so the Gateway does not re-deliver it.
type InboundService struct {
	startIntent string
	blocking    bool
	ignoreBusy  bool
	outputs     *OutputFactory
	journal     domain.JournalRepository
	pool        *taskrunner.Pool
	handler     domain.MessageHandler
}

func NewInboundService(cfg coreconfig.CVGConfig, outputs *OutputFactory, journal domain.JournalRepository, pool *taskrunner.Pool, handler domain.MessageHandler) *InboundService {
	return &InboundService{
		startIntent: cfg.StartIntent,
		blocking:    cfg.BlockingEndpoints,
		ignoreBusy:  cfg.IgnoreMessagesWhenBusy,
		outputs:     outputs,
		journal:     journal,
		pool:        pool,
		handler:     handler,
	}
}

// StartIntent is the canonical text for the session callback.
func (s *InboundService) StartIntent() string {
	return s.startIntent
}

// Process admits, schedules and (when blocking) completes the handling of one
// callback. It never returns an error: every internal failure is logged and
// absorbed here so the HTTP layer can acknowledge the Gateway.
func (s *InboundService) Process(ctx context.Context, in *Inbound) {
	text := strings.TrimSuffix(in.Text, ".")
	dialogID := in.Callback.DialogID

	identity := in.Callback.Identity()
	senderID := domain.EncodeRecipientID(identity.ResellerToken, identity.ProjectToken, identity.DialogID)

	s.journalAppend(ctx, dialogID, in.Kind, in.RawBody)

	if s.ignoreBusy && !dialogbusy.TryAcquire(dialogID) {
		logrus.Warnf("[WEBHOOK] Dialog %s is busy, dropping message %q", dialogID, text)
		return
	}

	var payload any
	if len(in.RawBody) > 0 {
		_ = json.Unmarshal(in.RawBody, &payload)
	}
	msg := domain.NewInboundMessage(text, senderID, s.outputs.ForCallback(in.Callback.Callback), payload)

	logrus.Infof("[WEBHOOK] Incoming event for dialog %s: {text=%s, sender=%s}", dialogID, text, senderID)

	if s.blocking || in.ForceBlocking {
		s.dispatch(ctx, msg, dialogID)
		return
	}

	scheduled := s.pool.Run(dialogID, func(taskCtx context.Context) error {
		s.dispatch(taskCtx, msg, dialogID)
		return nil
	})
	if !scheduled {
		logrus.Errorf("[WEBHOOK] Could not defer processing for dialog %s, dropping event", dialogID)
		s.releaseBusy(dialogID)
	}
}

// dispatch is the swallow-all boundary around the dialogue engine. The busy
// slot is released exactly once, panic or not.
func (s *InboundService) dispatch(ctx context.Context, msg *domain.InboundMessage, dialogID string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[WEBHOOK] Panic while handling event for dialog %s: %v\n%s", dialogID, r, debug.Stack())
		}
		s.releaseBusy(dialogID)
	}()

	if err := s.handler(ctx, msg); err != nil {
		logrus.WithError(err).Errorf("[WEBHOOK] Exception when trying to handle message for dialog %s", dialogID)
	}
}

func (s *InboundService) releaseBusy(dialogID string) {
	if s.ignoreBusy {
		dialogbusy.Release(dialogID)
	}
}

func (s *InboundService) journalAppend(ctx context.Context, dialogID, kind string, payload []byte) {
	if s.journal == nil {
		return
	}
	event := &domain.DialogEvent{
		DialogID:  dialogID,
		Direction: domain.DirectionInbound,
		Kind:      kind,
		Payload:   string(payload),
	}
	if err := s.journal.Append(ctx, event); err != nil {
		logrus.WithError(err).Warnf("[JOURNAL] Could not record %s for dialog %s", kind, dialogID)
	}
}
