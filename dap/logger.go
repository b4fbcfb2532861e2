package dap

// Logger is the diagnostic sink consumed by this package. Decode failures,
// adapter stderr output, and unexpected closes are routed here; nothing is
// ever written directly to stdout. Adapt a concrete logging library (slog,
// zerolog, ...) to this interface at the call site.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. It is the default when no Logger is
// supplied.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
