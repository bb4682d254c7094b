package models

// BroadcastJob — задание на массовую рассылку, публикуемое в очередь.
type BroadcastJob struct {
	ID   string `json:"id"`   // uuid задания
	Text string `json:"text"` // текст сообщения
}
