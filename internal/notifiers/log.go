// Package notifiers provides the pluggable alert delivery backends the
// lifecycle manager fans out to.
package notifiers

import (
	"context"
	"fmt"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
)

// LogNotifier writes alerts to the service log. Always registered; it also
// serves as the delivery of last resort when no external channel is
// configured.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(ctx context.Context, alert models.Alert) error {
	n.logger.Infof("ALERT %s", Subject(alert))
	return nil
}

// Subject renders the one-line summary shared by all notifiers.
func Subject(alert models.Alert) string {
	if alert.Status == models.AlertStatusResolved {
		return fmt.Sprintf("[RESOLVED] station %s: %s", alert.StationID, alert.AlertType)
	}
	return fmt.Sprintf("[%s] station %s: %s", alert.Severity, alert.StationID, alert.AlertType)
}

// Body renders the detail block shared by the telegram and email notifiers.
func Body(alert models.Alert) string {
	return fmt.Sprintf(
		"%s\nStation: %s\nValue: %.2f\nThreshold: %.2f\nObserved at: %s",
		alert.AlertMessage,
		alert.StationID,
		alert.AlertValue,
		alert.ThresholdValue,
		alert.Timestamp.Format("2006-01-02 15:04:05 MST"),
	)
}
