package service

import (
	"commerce-backend/internal/model"
	serviceErrors "commerce-backend/internal/service/errors"
	"commerce-backend/internal/testutil"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditExport_WritesCSV(t *testing.T) {
	f := newFixture(t)
	item := f.stock(t, 1, 10)
	for i := 0; i < 3; i++ {
		_, err := f.inventory.Adjust(f.ctx, AdjustInventoryCommand{
			ItemID:  item.ID,
			Delta:   -1,
			Reason:  model.ReasonDamaged,
			ActorID: testutil.Int64(5),
		})
		require.NoError(t, err)
	}

	result, err := f.audit.Export(f.ctx, ExportAuditQuery{
		From: fixedNow.Add(-time.Hour),
		To:   fixedNow.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)

	raw, err := os.Open(filepath.Join(f.exportDir, result.Location))
	require.NoError(t, err)
	defer raw.Close()
	records, err := csv.NewReader(raw).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"id", "created_at", "actor_id", "action", "entity_type", "entity_id", "details"}, records[0])
	assert.Equal(t, "5", records[1][2])
	assert.Equal(t, model.AuditActionInventoryAdj, records[1][3])
	assert.Equal(t, model.EntityInventoryItem, records[1][4])

	empty, err := f.audit.Export(f.ctx, ExportAuditQuery{
		From: fixedNow.Add(24 * time.Hour),
		To:   fixedNow.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
}

func TestAuditExport_RejectsInvertedRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.audit.Export(f.ctx, ExportAuditQuery{From: fixedNow, To: fixedNow.Add(-time.Hour)})
	assert.True(t, serviceErrors.Is(err, serviceErrors.ErrInvalidInput))
}

func TestAuditList_Filters(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 1, 5)
	order, pid := f.paidOrder(t, 1, 1, 1000)
	_, err := f.payments.Refund(f.ctx, RefundPaymentCommand{PaymentID: pid, Reason: "退货"})
	require.NoError(t, err)

	logs, total, err := f.audit.List(f.ctx, model.AuditFilter{EntityType: model.EntityPayment})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, model.AuditActionRefund, logs[0].Action)
	assert.EqualValues(t, order.ID, logs[0].Details["order_id"])

	_, total, err = f.audit.List(f.ctx, model.AuditFilter{Action: model.AuditActionCapture})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
