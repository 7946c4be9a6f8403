package fetchstate

import "log"

// Notifier receives the diagnostic text of a failed fetch.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct {
	Prefix string
}

func (n LogNotifier) Notify(message string) {
	log.Printf("WARN: %s%s", n.Prefix, message)
}
