package engine

import (
	"sync"

	"github.com/hupe1980/docgo/document"
)

// Observer receives store lifecycle callbacks. Callbacks are delivered
// synchronously after the state change, on the mutating goroutine, and
// must not call back into the store.
type Observer interface {
	// OnSave fires after a collection has been persisted.
	OnSave(collection string)
	// OnUpdate fires once per updated document with its new state.
	OnUpdate(collection string, doc document.Document)
	// OnDelete fires once per removed document.
	OnDelete(collection string, id string)
	// OnDrop fires after a collection has been dropped.
	OnDrop(collection string)
	// OnClose fires when the store shuts down.
	OnClose()
}

// Notifier fans store events out to subscribed observers. Each store
// owns its own notifier; there is no process-global event bus.
type Notifier struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for all subsequent events.
func (n *Notifier) Subscribe(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.observers = append(n.observers, o)
}

func (n *Notifier) notifySave(collection string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, o := range n.observers {
		o.OnSave(collection)
	}
}

func (n *Notifier) notifyUpdate(collection string, doc document.Document) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, o := range n.observers {
		o.OnUpdate(collection, doc)
	}
}

func (n *Notifier) notifyDelete(collection string, id string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, o := range n.observers {
		o.OnDelete(collection, id)
	}
}

func (n *Notifier) notifyDrop(collection string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, o := range n.observers {
		o.OnDrop(collection)
	}
}

func (n *Notifier) notifyClose() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, o := range n.observers {
		o.OnClose()
	}
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil fields are skipped.
type ObserverFuncs struct {
	Save   func(collection string)
	Update func(collection string, doc document.Document)
	Delete func(collection string, id string)
	Drop   func(collection string)
	Close  func()
}

func (f ObserverFuncs) OnSave(collection string) {
	if f.Save != nil {
		f.Save(collection)
	}
}

func (f ObserverFuncs) OnUpdate(collection string, doc document.Document) {
	if f.Update != nil {
		f.Update(collection, doc)
	}
}

func (f ObserverFuncs) OnDelete(collection string, id string) {
	if f.Delete != nil {
		f.Delete(collection, id)
	}
}

func (f ObserverFuncs) OnDrop(collection string) {
	if f.Drop != nil {
		f.Drop(collection)
	}
}

func (f ObserverFuncs) OnClose() {
	if f.Close != nil {
		f.Close()
	}
}
