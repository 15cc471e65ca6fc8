package accessmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

// Collector counts every terminal access decision. It satisfies the
// evaluator's DecisionObserver interface.
type Collector struct {
	decisionsTotal *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "tenantgate"
	}
	return &Collector{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access decisions by operation, outcome and deny reason.",
		}, []string{"operation", "outcome", "reason"}),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) error {
	return reg.Register(c.decisionsTotal)
}

func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.decisionsTotal)
}

func (c *Collector) ObserveDecision(op types.Operation, decision types.Decision) {
	outcome := "deny"
	reason := string(decision.Reason)
	if decision.Allowed {
		outcome = "allow"
		reason = ""
	}
	c.decisionsTotal.WithLabelValues(string(op), outcome, reason).Inc()
}
