package logging

import (
	"context"
	"io"
	"os"

	"github.com/giovaniif/epayco-checkout/infra/requestid"
	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. When extra is non-nil
// (a Loki writer) every line is also sent there.
func Setup(level string, format string, extra io.Writer) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if extra != nil {
		logrus.SetOutput(io.MultiWriter(os.Stdout, extra))
	} else {
		logrus.SetOutput(os.Stdout)
	}
}

// FromContext returns an entry tagged with the request id, if any.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logrus.StandardLogger())
	if id := requestid.FromContext(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
