package reconciler

import (
	"context"

	"github.com/google/uuid"
	"github.com/nais/deploystatus/pkg/deploystatus/deployment"
	"github.com/nais/deploystatus/pkg/deploystatus/metrics"
	"github.com/nais/deploystatus/pkg/telemetry"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	otrace "go.opentelemetry.io/otel/trace"
)

// Reconciler moves deployments that are waiting in Ready on to Succeeded.
type Reconciler struct {
	Service deployment.Service
	Logger  log.FieldLogger
}

func New(service deployment.Service, logger log.FieldLogger) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{
		Service: service,
		Logger:  logger,
	}
}

// Reconcile runs a single pass and returns the number of status updates attempted.
//
// Failures for a single deployment are logged and do not stop the pass.
// Updates already made are never rolled back.
func (r *Reconciler) Reconcile(ctx context.Context) int {
	ctx, span := telemetry.Tracer().Start(ctx, "Reconcile ready deployments")
	defer span.End()

	logger := r.Logger.WithField("correlation_id", uuid.New().String())

	ready, err := r.readyDeployments(ctx, logger)
	if err != nil {
		metrics.ListFailed.Inc()
		telemetry.Failed(span, err)
		logger.Errorf("Error listing deployments: %s", err)
		return 0
	}

	if len(ready) == 0 {
		logger.Infof("No deployments in %s state found", deployment.StatusReady)
		return 0
	}

	attempted := 0
	succeeded := 0

	for _, d := range ready {
		ok, tried := r.promote(ctx, logger.WithFields(d.LogFields()), d.ID)
		if tried {
			attempted++
		}
		if ok {
			succeeded++
		}
	}

	span.SetAttributes(
		attribute.Int("deployments.ready", len(ready)),
		attribute.Int("deployments.attempted", attempted),
		attribute.Int("deployments.succeeded", succeeded),
	)

	if succeeded > 0 {
		logger.Infof("Updated %d deployments to %s", succeeded, deployment.StatusSucceeded)
	}

	return attempted
}

func (r *Reconciler) readyDeployments(ctx context.Context, logger log.FieldLogger) ([]deployment.Deployment, error) {
	logger.Infof("Retrieving deployments in %s state...", deployment.StatusReady)

	all, err := deployment.ListAll(ctx, r.Service)
	if err != nil {
		return nil, err
	}

	ready := deployment.FilterStatus(all, deployment.StatusReady)
	metrics.ReadyFound.Add(float64(len(ready)))
	logger.Infof("Found %d deployments in %s state", len(ready), deployment.StatusReady)

	return ready, nil
}

// promote re-reads a deployment and, if it is still Ready, requests the transition.
// Returns whether the update succeeded, and whether it was attempted at all.
func (r *Reconciler) promote(ctx context.Context, logger log.FieldLogger, id string) (succeeded bool, attempted bool) {
	ctx, span := telemetry.Tracer().Start(ctx, "Promote deployment", otrace.WithAttributes(
		attribute.String("deployment.id", id),
	))
	defer span.End()

	current, err := r.Service.GetDeployment(ctx, id)
	if err != nil {
		metrics.LookupFailed.Inc()
		telemetry.Failed(span, err)
		logger.Errorf("Error retrieving deployment %s: %s", id, err)
		return false, false
	}

	if !current.Ready() {
		logger.Infof("Deployment %s is no longer %s (now %s); skipping", id, deployment.StatusReady, current.Status)
		return false, false
	}

	err = r.Service.UpdateStatus(ctx, id, deployment.StatusSucceeded)
	if err != nil {
		metrics.UpdateFailed.Inc()
		telemetry.Failed(span, err)
		logger.Errorf("Error updating deployment %s: %s", id, err)
		return false, true
	}

	metrics.UpdateSucceeded.Inc()
	logger.Infof("Successfully updated deployment %s to %s", id, deployment.StatusSucceeded)

	return true, true
}
