package teams

import (
	"sync"
	"time"
)

// EventType names a change observable on a task list, mailbox or coordinator.
type EventType string

const (
	EventTaskAdded      EventType = "task-added"
	EventTaskClaimed    EventType = "task-claimed"
	EventTaskCompleted  EventType = "task-completed"
	EventTaskFailed     EventType = "task-failed"
	EventTasksUnblocked EventType = "tasks-unblocked"
	EventMessageSent    EventType = "message-sent"
)

// Event describes a single change. Task is set for task events, Unblocked
// for tasks-unblocked, Message for message-sent.
type Event struct {
	Type      EventType
	Task      *Task
	Unblocked []*Task
	Message   *Message
	Time      time.Time
}

// Listener receives events synchronously, after the emitter released its
// locks. Listeners must not block for long.
type Listener func(Event)

type observers struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener
	order     []int
}

func (o *observers) subscribe(l Listener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listeners == nil {
		o.listeners = make(map[int]Listener)
	}
	id := o.next
	o.next++
	o.listeners[id] = l
	o.order = append(o.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.listeners, id)
			for i, v := range o.order {
				if v == id {
					o.order = append(o.order[:i], o.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (o *observers) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	o.mu.RLock()
	ls := make([]Listener, 0, len(o.order))
	for _, id := range o.order {
		ls = append(ls, o.listeners[id])
	}
	o.mu.RUnlock()

	for _, l := range ls {
		l(e)
	}
}

func (o *observers) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = nil
	o.order = nil
}
