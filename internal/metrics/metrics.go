// Package metrics регистрирует счётчики Prometheus для конвейера проверки.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal — количество завершённых проверок карт по исходам.
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardgate_checks_total",
		Help: "Количество проверок карт по исходам.",
	}, []string{"outcome"})

	// DebitsTotal — количество списаний кредитов.
	DebitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardgate_debits_total",
		Help: "Количество успешных списаний кредитов.",
	})

	// UpdatesTotal — количество обработанных обновлений Telegram по типам.
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardgate_updates_total",
		Help: "Количество обновлений Telegram по типам.",
	}, []string{"kind"})
)
