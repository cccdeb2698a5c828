package sts

import (
	"github.com/rs/zerolog"

	"sts/internal/stslog"
)

// schedLogger returns a logger tagged with the owning schedule's name, used
// by PrintAssignments and PrintSubTaskTimes.
func schedLogger(name string) zerolog.Logger {
	return stslog.Named("schedule").With().Str("schedule", name).Logger()
}
