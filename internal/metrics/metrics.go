// Package metrics exposes vault-level Prometheus counters.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/model"
	"docvault/internal/workflow"
)

// Vault counts catalog and workflow activity.
type Vault struct {
	documentsCreated *prometheus.CounterVec
	transitions      *prometheus.CounterVec
}

// NewVault creates the collectors and registers them on reg.
func NewVault(reg prometheus.Registerer) (*Vault, error) {
	v := &Vault{
		documentsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_documents_created_total",
				Help: "Documents registered in the catalog.",
			},
			[]string{"class"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_workflow_transitions_total",
				Help: "Committed workflow transitions.",
			},
			[]string{"class", "from", "event", "to"},
		),
	}
	for _, c := range []prometheus.Collector{v.documentsCreated, v.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// DocumentCreated is a service.OnCreated callback.
func (v *Vault) DocumentCreated(doc model.Document) {
	v.documentsCreated.WithLabelValues(doc.Class).Inc()
}

// OnTransition implements workflow.Observer.
func (v *Vault) OnTransition(_ context.Context, c workflow.Change) {
	v.transitions.WithLabelValues(c.Class, c.From, c.Event, c.To).Inc()
}

var _ workflow.Observer = (*Vault)(nil)
