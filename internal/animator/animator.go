// Package animator реализует индикатор выполнения: конкурентная задача
// редактирует ранее отправленное сообщение с бегущим многоточием, пока
// не получит сигнал остановки.
//
// Контракт порядка с конвейером проверки: stop → пауза settle → финальная
// правка сообщения. Пауза нужна, чтобы очередной тик аниматора не
// перезаписал итоговый текст; это требование корректности, не косметика.
package animator

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultInterval — период редактирования индикатора.
	DefaultInterval = 600 * time.Millisecond
	// SettleDelay — пауза между сигналом остановки и финальной правкой.
	SettleDelay = 200 * time.Millisecond
)

var frames = [...]string{".", "..", "..."}

// Animator редактирует сообщение с заданным периодом.
type Animator struct {
	interval time.Duration
}

// New создаёт аниматор с периодом interval; неположительный период
// заменяется на DefaultInterval.
func New(interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Animator{interval: interval}
}

// Start запускает горутину, которая до сигнала остановки дописывает к
// base строку "🔄 Processing" с бегущим многоточием через edit. Ошибки
// правки молча игнорируются: транспорт может отклонить правку уже
// финализированного сообщения. Возвращает идемпотентную функцию
// остановки; она сигналит горутине и ждёт её завершения.
func (a *Animator) Start(ctx context.Context, base string, edit func(text string) error) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = edit(base + "\n🔄 Processing" + frames[i%len(frames)])
				i++
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}

// Settle выдерживает паузу между остановкой аниматора и финальной правкой.
func Settle() {
	time.Sleep(SettleDelay)
}
