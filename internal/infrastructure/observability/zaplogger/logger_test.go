package zaplogger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core), observability.F("service", "foodmarket"))

	l.With(observability.F("use_case", "inventory.purchase")).
		Info("use_case_done", observability.F("outcome", "success"), observability.F("remaining", 4))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "use_case_done", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "foodmarket", ctx["service"])
	assert.Equal(t, "inventory.purchase", ctx["use_case"])
	assert.Equal(t, "success", ctx["outcome"])
	assert.EqualValues(t, 4, ctx["remaining"])
}

func TestErrorFieldsCarryKind(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core))

	stockErr := fmt.Errorf("inventory: decrement: %w",
		failure.Wrap(failure.KindStoreUnavailable, errors.New("i/o timeout"), "catalog: decrement"))
	l.Warn("idempotency_key_retained", observability.F("error", stockErr), observability.F("cause", nil))
	l.Error("plain", observability.F("error", errors.New("boom")))

	all := logs.All()
	require.Len(t, all, 2)
	first := all[0].ContextMap()
	assert.Equal(t, stockErr.Error(), first["error"])
	assert.Equal(t, "store_unavailable", first["error_kind"])
	assert.NotContains(t, first, "cause")
	assert.Equal(t, "internal", all[1].ContextMap()["error_kind"])
}

func TestWrapNil(t *testing.T) {
	assert.NotPanics(t, func() { Wrap(nil).Warn("ignored") })
}
