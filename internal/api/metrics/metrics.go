// Package metrics defines the custom Prometheus metrics of the auth API. It is
// the single source of truth for metric names, labels and help strings.
//
// Counters register with the default registry at package init; HTTP request
// metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authapi"

// Result label values.
const (
	ResultSuccess            = "success"
	ResultInvalid            = "invalid"
	ResultConflict           = "conflict"
	ResultInvalidCredentials = "invalid_credentials"
	ResultError              = "error"

	ResultMissing          = "missing"
	ResultMalformed        = "malformed"
	ResultInvalidSignature = "invalid_signature"
	ResultExpired          = "expired"
	ResultForbidden        = "forbidden"
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: success, invalid, conflict or error
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: success, invalid_credentials or error
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationsTotal counts bearer checks done by the access guard.
// Label:
//   - result: success, missing, malformed, invalid_signature or expired
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of bearer token checks, by result.",
	},
	[]string{"result"},
)

// RoleDenialsTotal counts requests rejected by a role gate.
// Label:
//   - required: the role the route demanded
var RoleDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_denials_total",
		Help:      "Total number of requests rejected for lacking the required role.",
	},
	[]string{"required"},
)

// RegisterHashPool exposes the number of password jobs waiting for a worker.
func RegisterHashPool(reg prometheus.Registerer, pending func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hash_queue_depth",
			Help:      "Current number of password hash jobs waiting for a worker.",
		},
		func() float64 { return float64(pending()) },
	))
}
