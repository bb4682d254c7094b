// Package cards реализует разбор и валидацию карточных записей формата
// "number|mm|yyyy|cvv". Разбор чистый, без побочных эффектов: некорректный
// ввод отклоняется без ошибок и без исключений.
package cards

import (
	"strconv"
	"strings"

	"github.com/magabrotheeeer/cardgate-bot/internal/lib/luhn"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
)

// Parse разбирает строку вида "number|mm|yyyy|cvv" в карточную запись.
//
// Возвращает nil, если: количество полей не равно 4, любое поле не состоит
// из цифр, номер не проходит проверку Луна или выходит за диапазон длины,
// месяц вне [1,12], CVV короче 3 или длиннее 4 символов.
// Двузначный год расширяется до "20YY". Месяц нормализуется к целому виду
// (без ведущего нуля).
func Parse(raw string) *models.Card {
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if len(parts) != 4 {
		return nil
	}
	number := strings.TrimSpace(parts[0])
	month := strings.TrimSpace(parts[1])
	year := strings.TrimSpace(parts[2])
	cvv := strings.TrimSpace(parts[3])

	if !digits(number) || !digits(month) || !digits(year) || !digits(cvv) {
		return nil
	}
	if !luhn.Valid(number) {
		return nil
	}
	mi, err := strconv.Atoi(month)
	if err != nil || mi < 1 || mi > 12 {
		return nil
	}
	if len(cvv) < 3 || len(cvv) > 4 {
		return nil
	}
	if len(year) == 2 {
		year = "20" + year
	}
	return &models.Card{
		Number: number,
		Month:  strconv.Itoa(mi),
		Year:   year,
		CVV:    cvv,
	}
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
