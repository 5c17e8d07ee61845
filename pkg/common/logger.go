package common

import (
	"os"

	"github.com/op/go-logging"
)

const DefaultLogFormat = `%{time:2006-01-02T15:04:05.000} %{module}::%{shortfunc} > %{level:.5s} - %{message}`

// CreateLogger installs a leveled backend writing to logfile (appending) or stderr.
// lf has to be closed by the caller.
func CreateLogger(module string, logfile string, loglevel string, logformat string) (log *logging.Logger, lf *os.File) {
	log = logging.MustGetLogger(module)
	var logErr error
	lf = os.Stderr
	if logfile != "" {
		f, err := os.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logErr = err
		} else {
			lf = f
		}
	}
	level, err := logging.LogLevel(loglevel)
	if err != nil {
		level = logging.INFO
	}
	if logformat == "" {
		logformat = DefaultLogFormat
	}
	backend := logging.NewLogBackend(lf, "", 0)
	backendLeveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, logging.MustStringFormatter(logformat)))
	backendLeveled.SetLevel(level, "")
	logging.SetBackend(backendLeveled)

	if logErr != nil {
		log.Errorf("cannot open logfile %v: %v", logfile, logErr)
	}
	if err != nil {
		log.Warningf("invalid loglevel %s, using INFO", loglevel)
	}
	return
}
