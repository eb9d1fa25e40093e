package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/sealdrop/internal/metrics"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
)

func recordOperation(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	m.RecordOperation(ctx, "transfer", operation, status)
	m.RecordDuration(ctx, "transfer", operation, time.Since(start), status)
}

// orchestratorWithMetrics decorates Orchestrator with metrics instrumentation.
type orchestratorWithMetrics struct {
	next    Orchestrator
	metrics metrics.BusinessMetrics
}

// NewOrchestratorWithMetrics wraps an Orchestrator with metrics recording.
func NewOrchestratorWithMetrics(useCase Orchestrator, m metrics.BusinessMetrics) Orchestrator {
	return &orchestratorWithMetrics{next: useCase, metrics: m}
}

func (o *orchestratorWithMetrics) Initiate(
	ctx context.Context,
	input *transferDomain.InitiateInput,
) (*transferDomain.InitiateOutput, error) {
	start := time.Now()
	output, err := o.next.Initiate(ctx, input)
	recordOperation(ctx, o.metrics, "initiate", start, err)
	return output, err
}

func (o *orchestratorWithMetrics) StoreKey(ctx context.Context, input *transferDomain.StoreKeyInput) error {
	start := time.Now()
	err := o.next.StoreKey(ctx, input)
	recordOperation(ctx, o.metrics, "store_key", start, err)
	return err
}

func (o *orchestratorWithMetrics) FinalizeURL(
	ctx context.Context,
	input *transferDomain.FinalizeInput,
) (*transferDomain.FinalizeOutput, error) {
	start := time.Now()
	output, err := o.next.FinalizeURL(ctx, input)
	recordOperation(ctx, o.metrics, "finalize_url", start, err)
	return output, err
}

func (o *orchestratorWithMetrics) Get(
	ctx context.Context,
	sessionID, senderID uuid.UUID,
) (*transferDomain.Transfer, error) {
	start := time.Now()
	transfer, err := o.next.Get(ctx, sessionID, senderID)
	recordOperation(ctx, o.metrics, "get", start, err)
	return transfer, err
}

// downloadBrokerWithMetrics decorates DownloadBroker with metrics instrumentation.
type downloadBrokerWithMetrics struct {
	next    DownloadBroker
	metrics metrics.BusinessMetrics
}

// NewDownloadBrokerWithMetrics wraps a DownloadBroker with metrics recording.
func NewDownloadBrokerWithMetrics(useCase DownloadBroker, m metrics.BusinessMetrics) DownloadBroker {
	return &downloadBrokerWithMetrics{next: useCase, metrics: m}
}

func (d *downloadBrokerWithMetrics) GetInfo(
	ctx context.Context,
	urlToken, ipAddress string,
) (*transferDomain.Info, error) {
	start := time.Now()
	info, err := d.next.GetInfo(ctx, urlToken, ipAddress)
	recordOperation(ctx, d.metrics, "get_info", start, err)
	return info, err
}

func (d *downloadBrokerWithMetrics) GetKey(
	ctx context.Context,
	urlToken, authToken, ipAddress string,
) (*transferDomain.KeyRelease, error) {
	start := time.Now()
	release, err := d.next.GetKey(ctx, urlToken, authToken, ipAddress)
	recordOperation(ctx, d.metrics, "get_key", start, err)
	return release, err
}

func (d *downloadBrokerWithMetrics) Complete(ctx context.Context, urlToken, authToken, ipAddress string) error {
	start := time.Now()
	err := d.next.Complete(ctx, urlToken, authToken, ipAddress)
	recordOperation(ctx, d.metrics, "complete", start, err)
	return err
}

func (d *downloadBrokerWithMetrics) ForceDelete(
	ctx context.Context,
	sessionID, actorID uuid.UUID,
	ipAddress string,
) error {
	start := time.Now()
	err := d.next.ForceDelete(ctx, sessionID, actorID, ipAddress)
	recordOperation(ctx, d.metrics, "force_delete", start, err)
	return err
}

func (d *downloadBrokerWithMetrics) ExpireStale(ctx context.Context, limit int, dryRun bool) (int, error) {
	start := time.Now()
	n, err := d.next.ExpireStale(ctx, limit, dryRun)
	recordOperation(ctx, d.metrics, "expire_stale", start, err)
	return n, err
}
