package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	log *logrus.Logger
}

func NewLogger(debug bool) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return &Logger{log: l}
}

func (l *Logger) Debug(v ...interface{}) {
	l.log.Debugln(v...)
}

func (l *Logger) Info(v ...interface{}) {
	l.log.Infoln(v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.log.Warnln(v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.log.Errorln(v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.log.Fatalln(v...)
}
