package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes Fx lifecycle events through the package logger so
// container wiring shows up in the same stream as application logs.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// hookEvent logs one lifecycle hook execution or failure.
func hookEvent(phase, funcName string, err error) {
	name := trimAnonymousSuffix(funcName)
	if err != nil {
		Errorf("%s hook failed: %s: %v", phase, name, err)
		return
	}
	Debugf("%s hook: %s", phase, name)
}

// LogEvent logs events from Fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		hookEvent("OnStart", e.FunctionName, nil)
	case *fxevent.OnStartExecuted:
		hookEvent("OnStart", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuting:
		hookEvent("OnStop", e.FunctionName, nil)
	case *fxevent.OnStopExecuted:
		hookEvent("OnStop", e.FunctionName, e.Err)
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supply failed: %v", e.Err)
		} else {
			Debugf("Supplied %s", e.TypeName)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Provide failed: %v", e.Err)
		}
		for _, typeName := range e.OutputTypeNames {
			Debugf("Provided %s", typeName)
		}
	case *fxevent.Invoking:
		Debugf("Invoking %s", trimAnonymousSuffix(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke failed: %s: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		Infof("Received %s, shutting down", e.Signal)
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Shutdown failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Startup failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Startup failed: %v", e.Err)
		} else {
			Infof("Orchestrator started")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Logger initialization failed: %v", e.Err)
		}
	}
}

// trimAnonymousSuffix strips Fx's anonymous-function suffixes (".func1" and
// friends) so hook log lines name the registering constructor.
func trimAnonymousSuffix(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
