package checker

import (
	"strings"

	"github.com/magabrotheeeer/cardgate-bot/internal/models"
)

// challengeMarkers — подстроки ответа, означающие требование дополнительной
// аутентификации. Проверяются по верхнему регистру сообщения.
var challengeMarkers = []string{"3DS", "3D", "OTP", "ONE TIME PASSWORD", "REDIRECT", "3-D"}

// approvedStatuses — статусы, трактуемые как одобрение.
var approvedStatuses = map[string]struct{}{
	"succeeded":       {},
	"order_id":        {},
	"requires_action": {},
}

// cvvIncorrectMarker — отказ по коду безопасности при живой карте.
// Такой ответ трактуется как одобрение независимо от статуса: это сигнал,
// что карта сама по себе принята шлюзом.
const cvvIncorrectMarker = "SECURITY CODE IS INCORRECT"

// Classify сводит статус и текст ответа сервиса к пользовательскому исходу.
//
// Порядок проверок фиксирован: маркер дополнительной аутентификации
// вытесняет любой одобряющий статус; затем одобряющие статусы; затем
// маркер отказа по CVV; всё остальное — отказ. Функция чистая.
func Classify(status, message string) models.Outcome {
	upper := strings.ToUpper(message)
	for _, m := range challengeMarkers {
		if strings.Contains(upper, m) {
			return models.OutcomeChallenge
		}
	}
	if _, ok := approvedStatuses[strings.ToLower(status)]; ok {
		return models.OutcomeApproved
	}
	if strings.Contains(upper, cvvIncorrectMarker) {
		return models.OutcomeApproved
	}
	return models.OutcomeDeclined
}
