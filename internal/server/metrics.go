package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tasks",
		Name:      "registrations_total",
		Help:      "Number of accounts created.",
	})
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})
	taskMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Name:      "task_mutations_total",
		Help:      "Task writes by operation.",
	}, []string{"op"})
)
