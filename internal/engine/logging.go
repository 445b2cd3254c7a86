package engine

import "github.com/rs/zerolog"

var baseLogger = zerolog.Nop()

// SetLogger installs the zerolog.Logger the engine logs through. The
// CLI layer calls this once at startup; tests leave it as a no-op
// logger.
func SetLogger(l zerolog.Logger) {
	baseLogger = l
}

// getLogger returns a component-tagged child of the installed
// logger, mirroring the teacher's GetLogger(component) convention.
func getLogger(component string) zerolog.Logger {
	return baseLogger.With().Str("component", component).Logger()
}
