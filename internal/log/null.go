package log

// NullLogger discards everything.
type NullLogger struct{}

// NewNullLogger returns a NullLogger.
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (l *NullLogger) Debug(string, ...any) {}
func (l *NullLogger) Info(string, ...any)  {}
func (l *NullLogger) Warn(string, ...any)  {}
func (l *NullLogger) Error(string, ...any) {}
func (l *NullLogger) With(...any) Logger   { return l }
