package ecs

// Local is private per-system state, scoped exclusively to the system
// instance that declares it. The value is zero-initialized when the
// system is registered and persists between invocations. It declares no
// shared access, so it never affects scheduling.
type Local[T any] struct {
	value *T
}

func (l *Local[T]) initParam(*World) {
	l.value = new(T)
}

func (l *Local[T]) access() []accessDecl {
	return nil
}

// Get returns the system's private value.
func (l *Local[T]) Get() *T {
	if l.value == nil {
		l.value = new(T)
	}
	return l.value
}
