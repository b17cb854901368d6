package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records bookkeeping activity. A nil *LedgerMetrics records
// nothing.
type LedgerMetrics struct {
	vouchersPosted    *Counter
	vouchersVoided    *Counter
	periodCloses      *Counter
	operationErrors   *Counter
	operationDuration *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	posted, err := NewCounter(meter, "ledger.vouchers.posted", "Vouchers confirmed into the balance ledger", "{voucher}")
	if err != nil {
		return nil, err
	}
	voided, err := NewCounter(meter, "ledger.vouchers.voided", "Vouchers voided by a mirror voucher", "{voucher}")
	if err != nil {
		return nil, err
	}
	closes, err := NewCounter(meter, "ledger.periods.closed", "Accounting periods closed", "{period}")
	if err != nil {
		return nil, err
	}
	errs, err := NewCounter(meter, "ledger.operation.errors", "Ledger operations that failed", "{error}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger.operation.duration",
		Description: "Duration of ledger write operations",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{
		vouchersPosted:    posted,
		vouchersVoided:    voided,
		periodCloses:      closes,
		operationErrors:   errs,
		operationDuration: duration,
	}, nil
}

// VoucherPosted counts a confirmed voucher
func (m *LedgerMetrics) VoucherPosted(ctx context.Context, tenantID, source string) {
	if m == nil {
		return
	}
	m.vouchersPosted.Inc(ctx, AttrTenantID.String(tenantID), AttrSource.String(source))
}

// VoucherVoided counts a voided voucher
func (m *LedgerMetrics) VoucherVoided(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.vouchersVoided.Inc(ctx, AttrTenantID.String(tenantID))
}

// PeriodClosed counts a period close
func (m *LedgerMetrics) PeriodClosed(ctx context.Context, tenantID, orgID string) {
	if m == nil {
		return
	}
	m.periodCloses.Inc(ctx, AttrTenantID.String(tenantID), AttrOrgID.String(orgID))
}

// ObserveOperation records how long operation took and whether it failed.
//
//	defer metrics.ObserveOperation(ctx, "voucher.confirm", time.Now(), &err)
func (m *LedgerMetrics) ObserveOperation(ctx context.Context, operation string, started time.Time, errp *error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = "error"
		m.operationErrors.Inc(ctx, AttrOperation.String(operation))
	}
	m.operationDuration.RecordDuration(ctx, time.Since(started),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	)
}
