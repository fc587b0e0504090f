package logger

import "sync"

var (
	namedMu sync.RWMutex
	named   = map[string]*Logger{}
)

// Register installs l as the logger returned by Get(name). A nil l removes
// the entry.
func Register(name string, l *Logger) {
	namedMu.Lock()
	defer namedMu.Unlock()
	if l == nil {
		delete(named, name)
		return
	}
	named[name] = l
}

// Get returns the logger registered under name, or the global logger tagged
// with component name.
func Get(name string) *Logger {
	namedMu.RLock()
	l, ok := named[name]
	namedMu.RUnlock()
	if ok {
		return l
	}
	return WithComponent(name)
}
