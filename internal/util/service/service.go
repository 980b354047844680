package serviceutil

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lthibault/log"
	"github.com/thejerf/suture/v4"
)

// New supervisor that reports its events to the logger.  Panic traces
// are written to w.
func New(name string, logger log.Logger, w io.Writer) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: NewEventHook(logger, w),
	})
}

func NewEventHook(logger log.Logger, w io.Writer) suture.EventHook {
	return func(e suture.Event) {
		switch ev := e.(type) {
		case suture.EventBackoff:
			logger.WithFields(ev.Map()).Debugf("%s suspended", ev.SupervisorName)

		case suture.EventResume:
			logger.
				WithField("parent", ev.SupervisorName).
				Infof("%s resumed", ev.SupervisorName)

		case suture.EventServiceTerminate:
			logger.With(Exception{
				Value:        ev.Err,
				Parent:       ev.SupervisorName,
				Restart:      ev.Restarting,
				Backpressure: ev.CurrentFailures / ev.FailureThreshold,
			}).
				Warnf("encountered exception in %s", ev.ServiceName)

		case suture.EventServicePanic:
			logger.With(Exception{
				Value:        ev.PanicMsg,
				Parent:       ev.SupervisorName,
				Restart:      ev.Restarting,
				Backpressure: ev.CurrentFailures / ev.FailureThreshold,
			}).
				Warnf("unhandled exception in %s", ev.ServiceName)

			fmt.Fprintf(w, "%s\n%s\n",
				ev.PanicMsg,
				ev.Stacktrace)

		case suture.EventStopTimeout:
			logger.
				WithField("parent", ev.SupervisorName).
				Errorf("%s failed to stop in time", ev.ServiceName)
		}
	}
}

// Exception is thrown asynchronously from services.
type Exception struct {
	Value        interface{} `json:"value"`
	Parent       string      `json:"parent"`
	Restart      bool        `json:"restart"`
	Backpressure float64     `json:"backpressure"`
}

func (e Exception) GoString() string {
	return fmt.Sprintf(strings.TrimSpace(`
Exception{
	Value:       "%#v",
	Parent:      "%s",
	Restart:      %t,
	Backpressure: %.2f,
}`),
		e.Value,
		strconv.Quote(e.Parent),
		e.Restart,
		e.Backpressure)
}

func (e Exception) Loggable() map[string]interface{} {
	return map[string]interface{}{
		"value":        e.Value,
		"parent":       e.Parent,
		"restart":      e.Restart,
		"backpressure": e.Backpressure,
	}
}
