package models

// Outcome — итог проверки карты, показываемый пользователю.
type Outcome int

const (
	// OutcomeDeclined — карта отклонена.
	OutcomeDeclined Outcome = iota
	// OutcomeApproved — карта одобрена.
	OutcomeApproved
	// OutcomeChallenge — требуется дополнительная аутентификация (3DS/OTP).
	OutcomeChallenge
)

// String возвращает имя исхода для логов и метрик.
func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "approved"
	case OutcomeChallenge:
		return "challenge"
	default:
		return "declined"
	}
}