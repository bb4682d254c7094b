// Package models содержит структуры данных приложения: пользователи,
// карточные записи, результаты проверки и задания на рассылку.
package models

import "time"

// User — учётная запись пользователя бота.
// Создаётся при первой регистрации, никогда не удаляется.
type User struct {
	TgID        int64      // идентификатор пользователя Telegram
	Username    string     // @username, может быть пустым
	FullName    string     // отображаемое имя
	Credits     int        // баланс кредитов, не бывает отрицательным
	BannedUntil *time.Time // срок окончания бана, nil — бана нет
	JoinedAt    time.Time  // момент регистрации
	IsAdmin     bool       // привилегированный пользователь: безлимитный баланс
}

// Banned сообщает, действует ли бан на момент now.
func (u *User) Banned(now time.Time) bool {
	return u.BannedUntil != nil && u.BannedUntil.After(now)
}
