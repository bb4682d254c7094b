// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — упростить формирование структурированных полей лога:
// единообразный вывод ошибок и идентификаторов пользователей Telegram.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// TgID возвращает slog.Attr с ключом "tg_id" и идентификатором пользователя Telegram.
func TgID(id int64) slog.Attr {
	return slog.Attr{
		Key:   "tg_id",
		Value: slog.Int64Value(id),
	}
}
