// Package di wires the pulse CLI dependencies in a dig container.
package di

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/dashboard"
	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
	"github.com/trezcool/schoolpulse/services/backend"
	"github.com/trezcool/schoolpulse/services/logger"
	"github.com/trezcool/schoolpulse/services/transport"
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stderr, "PULSE : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newValidator() *core.Validator {
	v := core.NewValidator()
	incident.InitValidators(v.Validate, v.Translator)
	return v
}

// newSource picks the insights strategy from the configuration.
func newSource(conf *core.Config, client *backendsvc.Client, logger core.Logger) insights.Source {
	switch {
	case conf.Insights.Mode == core.InsightsModeDemo:
		return insights.NewDemoSource()
	case conf.Insights.OfflineDemo:
		return &insights.FallbackSource{Primary: client, Fallback: insights.NewDemoSource(), Logger: logger}
	default:
		return client
	}
}

func newController(source insights.Source, client *backendsvc.Client, validator *core.Validator, logger core.Logger) *dashboard.Controller {
	return dashboard.NewController(dashboard.Options{
		Source:    source,
		Backend:   client,
		Validator: validator,
		Logger:    logger,
	})
}

// New returns a new dependency injection dig.Container.
// newConfig is usually core.NewConfig.
func New(newConfig func() (*core.Config, error)) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newValidator))
	must(c.Provide(transportsvc.NewHTTPTransport))
	must(c.Provide(backendsvc.NewClient))
	must(c.Provide(newSource))
	must(c.Provide(newController))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
