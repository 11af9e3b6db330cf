package errors

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogError logs err with its code. Gateway and internal failures log at error;
// a coded client error that reaches here, like a conflicting charge, logs at warn.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	code := ErrInternal
	if coded, ok := asCoded(err); ok {
		code = coded.Code()
	}

	level := zapcore.ErrorLevel
	if ToHTTPStatus(code) < 500 {
		level = zapcore.WarnLevel
	}

	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.Error(err), zap.String("error_code", code))
	all = append(all, fields...)
	if ce := logger.Check(level, msg); ce != nil {
		ce.Write(all...)
	}
}
