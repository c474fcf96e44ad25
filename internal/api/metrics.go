package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapstudy_decks_created_total",
		Help: "Number of decks created.",
	})

	quizzesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapstudy_quiz_results_saved_total",
		Help: "Number of quiz results persisted.",
	})
)
