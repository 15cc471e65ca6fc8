package accessmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

func TestCollector_ObserveDecision(t *testing.T) {
	c := NewCollector("")
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		t.Fatalf("err=%v", err)
	}

	c.ObserveDecision(types.OperationRead, types.Allow())
	c.ObserveDecision(types.OperationRead, types.Allow())
	c.ObserveDecision(types.OperationWrite, types.Deny(types.DenyCrossTenant))

	if got := testutil.ToFloat64(c.decisionsTotal.WithLabelValues("read", "allow", "")); got != 2 {
		t.Fatalf("allow count=%v", got)
	}
	if got := testutil.ToFloat64(c.decisionsTotal.WithLabelValues("write", "deny", "cross_tenant")); got != 1 {
		t.Fatalf("deny count=%v", got)
	}
}

func TestCollector_RegisterTwice(t *testing.T) {
	c := NewCollector("tg")
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := c.Register(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
