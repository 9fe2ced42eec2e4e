package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
)

// LogOnlyHandler acknowledges every event without consulting an engine.
// Útil para probar el lado Gateway del conector sin un motor de diálogo.
func LogOnlyHandler(_ context.Context, msg *domain.InboundMessage) error {
	logrus.WithFields(logrus.Fields{
		"event_id": msg.ID,
		"sender":   msg.SenderID,
		"channel":  msg.InputChannel,
	}).Infof("[ENGINE] Event received (log-only): %q", msg.Text)
	return nil
}
