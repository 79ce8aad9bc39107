package logger

import (
	"go.uber.org/zap"
)

// NewLogger builds the application logger. Development mode gets the
// human-readable console encoder, everything else the production JSON one.
func NewLogger(environment string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if environment == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}
