// Package luhn реализует проверку номера карты по алгоритму Луна (mod 10).
package luhn

// MinPANLength и MaxPANLength — допустимые длины номера карты.
// 12 покрывает укороченные тестовые номера, 19 — максимум по ISO/IEC 7812.
const (
	MinPANLength = 12
	MaxPANLength = 19
)

// Valid проверяет строку цифр по алгоритму Луна.
// Возвращает false для пустой строки, нецифровых символов
// и длины вне диапазона [MinPANLength, MaxPANLength].
func Valid(number string) bool {
	if len(number) < MinPANLength || len(number) > MaxPANLength {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}
