package observability

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	coreObservability "github.com/sygmaprotocol/sygma-core/observability"
)

// ConfigureLogger sets the global logger level and output. Console output is
// configured through sygma-core unless json is set.
func ConfigureLogger(level zerolog.Level, out io.Writer, json bool) {
	if json {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		coreObservability.ConfigureLogger(level, out)
	}
	zerolog.SetGlobalLevel(level)
}
