package zaplogger

import (
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/h4food/foodmarket/internal/observability"
	"go.uber.org/zap"
)

// Logger adapts zap to observability.Logger.
type Logger struct{ z *zap.Logger }

var _ observability.Logger = (*Logger)(nil)

// Wrap binds fixed to every entry. A nil zap logger discards output.
func Wrap(l *zap.Logger, fixed ...observability.Field) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{z: l.With(fields(fixed)...)}
}

func (l *Logger) With(fs ...observability.Field) observability.Logger {
	if len(fs) == 0 {
		return l
	}
	return &Logger{z: l.z.With(fields(fs)...)}
}

func (l *Logger) Debug(msg string, fs ...observability.Field) { l.z.Debug(msg, fields(fs)...) }
func (l *Logger) Info(msg string, fs ...observability.Field)  { l.z.Info(msg, fields(fs)...) }
func (l *Logger) Warn(msg string, fs ...observability.Field)  { l.z.Warn(msg, fields(fs)...) }
func (l *Logger) Error(msg string, fs ...observability.Field) { l.z.Error(msg, fields(fs)...) }

func (l *Logger) Sync() error { return l.z.Sync() }

// fields maps values onto typed zap fields. Nil values are dropped and every
// error also gets a <key>_kind field with its failure kind.
func fields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		switch v := f.Value.(type) {
		case nil:
		case error:
			out = append(out,
				zap.NamedError(f.Key, v),
				zap.String(f.Key+"_kind", string(failure.KindOf(v))),
			)
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case time.Time:
			out = append(out, zap.Time(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
