package checker

// Result — структурированный ответ удалённого сервиса проверки.
// Сервис возвращает JSON-массив, значимым является первый элемент.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
