package app

import (
	"sync"
	"time"
)

const subscriberBuffer = 4

// InvalidationEvent сообщает подписчикам, что сессия стала недействительной
// и нужен повторный вход.
type InvalidationEvent struct {
	Reason string
	At     time.Time
}

// Notifier рассылает InvalidationEvent всем подписчикам.
// Publish не блокируется: медленный подписчик теряет события сверх буфера.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan InvalidationEvent
}

// NewNotifier создает Notifier без подписчиков.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan InvalidationEvent)}
}

// Subscribe возвращает канал событий и функцию отписки.
func (n *Notifier) Subscribe() (<-chan InvalidationEvent, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan InvalidationEvent, subscriberBuffer)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}

// Publish отправляет событие всем текущим подписчикам.
func (n *Notifier) Publish(ev InvalidationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
