// events — глобальный сигнал «сессия завершена» (logout).
//
// Клиент публикует сигнал, когда refresh не удался и учётные данные стёрты;
// любая часть приложения (CLI, UI-слой, фоновые воркеры) подписывается и
// реагирует, например, предлагает войти заново. Сигнал без payload.
package events

import "sync"

// Bus — fan-out без блокировок публикатора: у каждого подписчика буфер на один
// сигнал, повторные публикации до вычитывания схлопываются.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan struct{})}
}

// Subscribe возвращает канал сигналов и функцию отписки (закрывает канал,
// идемпотентна).
func (b *Bus) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Publish рассылает сигнал всем текущим подписчикам.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers — число активных подписок.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
