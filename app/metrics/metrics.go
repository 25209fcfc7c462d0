package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxypay_webhooks_received_total",
			Help: "Inbound gateway webhooks by outcome",
		},
		[]string{"outcome"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxypay_settlements_total",
			Help: "Payment settlements by payment type and final status",
		},
		[]string{"type", "status"},
	)

	WalletCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxypay_wallet_credits_total",
			Help: "Wallet ledger credits applied",
		},
	)

	ProvisioningFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxypay_provisioning_failures_total",
			Help: "Proxy provisioning calls that failed after payment capture",
		},
	)
)
