// Package guard реализует охрану единственной проверки на пользователя:
// повторная попытка при незавершённой проверке отклоняется, не ставится
// в очередь. Состояние живёт в памяти процесса и сбрасывается при
// рестарте — это документированное ограничение, не ошибка.
package guard

import "sync"

// Guard — процесс-широкая карта "пользователь занят".
type Guard struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

// New создаёт пустую охрану.
func New() *Guard {
	return &Guard{busy: make(map[int64]struct{})}
}

// TryAcquire помечает пользователя занятым. Возвращает false, если
// проверка уже идёт; вызывающая сторона обязана отбросить ввод.
func (g *Guard) TryAcquire(tgID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[tgID]; ok {
		return false
	}
	g.busy[tgID] = struct{}{}
	return true
}

// Release освобождает слот пользователя. Вызывается через defer,
// чтобы любой сбой внутри конвейера проверки не заклинил пользователя.
// Освобождение свободного слота безвредно.
func (g *Guard) Release(tgID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, tgID)
}
