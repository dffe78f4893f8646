package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ordinario/contahub-app-sheets/config"
	"github.com/ordinario/contahub-app-sheets/log"
	"github.com/ordinario/contahub-app-sheets/pipeline"
)

// initSentry enables error reporting if a DSN is configured. Returns false if error
// reporting is disabled.
func initSentry(conf *config.Config) (bool, error) {
	if conf.Sentry.DSN == "" {
		log.Debugf("%-10v DSN not configured - error reporting disabled", "sentry")
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         conf.Sentry.DSN,
		Environment: conf.Sentry.Environment,
		Release:     fmt.Sprintf("%v@%v", APP, VERSION),
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}

			return event
		},
	})

	if err != nil {
		return false, fmt.Errorf("sentry init (%w)", err)
	}

	log.Infof("%-10v error reporting enabled (%v)", "sentry", conf.Sentry.Environment)

	return true, nil
}

func flushSentry() {
	sentry.Flush(2 * time.Second)
}

// monitored reports failed pipeline runs to Sentry.
type monitored struct {
	pipeline *pipeline.Pipeline
	enabled  bool
}

func (m *monitored) Run(ctx context.Context) pipeline.Outcome {
	outcome := m.pipeline.Run(ctx)

	if !outcome.Success && m.enabled {
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}

		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("period", m.pipeline.Dates.String())
			hub.CaptureException(errors.New(outcome.Error))
		})
	}

	return outcome
}
