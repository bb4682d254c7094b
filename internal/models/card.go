package models

// Card — неизменяемая карточная запись из четырёх полей.
// Существует только на время одной проверки.
type Card struct {
	Number string // номер карты, только цифры, 12–19 символов
	Month  string // месяц без ведущего нуля, "1".."12"
	Year   string // четырёхзначный год
	CVV    string // код безопасности, 3–4 цифры
}

// Canonical возвращает каноническую строку "number|m|yyyy|cvv".
// Она же используется как ключ запроса к удалённому сервису проверки.
func (c Card) Canonical() string {
	return c.Number + "|" + c.Month + "|" + c.Year + "|" + c.CVV
}

// BIN возвращает первые шесть цифр номера карты.
func (c Card) BIN() string {
	return c.Number[:6]
}
