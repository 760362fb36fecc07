package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "evm_wallet"

var (
	transactionsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "transactions_sent_total",
		Help:      "Transactions signed and accepted by the node.",
	})

	sendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "send_failures_total",
		Help:      "Rejected or failed sends by reason.",
	}, []string{"reason"})

	refreshFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "refresh_failures_total",
		Help:      "Background refreshes that failed by kind.",
	}, []string{"kind"})

	unlockFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "unlock_failures_total",
		Help:      "Unlock attempts with a wrong password.",
	})
)
