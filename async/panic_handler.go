// Package async holds helpers for goroutines that must not take the whole process down when they panic.
package async

// PanicHandler is told about a recovered panic.
type PanicHandler interface {
	HandlePanic(any)
}

// NoopPanicHandler does not recover: a panic keeps unwinding as if no handler was installed.
type NoopPanicHandler struct{}

func (NoopPanicHandler) HandlePanic(any) {}

// HandlePanic must be deferred directly. It recovers a panic and hands it to the handler,
// unless the handler is nil or a NoopPanicHandler.
func HandlePanic(panicHandler PanicHandler) {
	if isNoop(panicHandler) {
		return
	}

	if r := recover(); r != nil {
		panicHandler.HandlePanic(r)
	}
}

func isNoop(panicHandler PanicHandler) bool {
	switch panicHandler.(type) {
	case nil, NoopPanicHandler, *NoopPanicHandler:
		return true

	default:
		return false
	}
}
