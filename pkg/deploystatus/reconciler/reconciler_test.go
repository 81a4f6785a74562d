package reconciler_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/nais/deploystatus/pkg/deploystatus/deployment"
	"github.com/nais/deploystatus/pkg/deploystatus/metrics"
	"github.com/nais/deploystatus/pkg/deploystatus/reconciler"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func ready(id string) deployment.Deployment {
	return deployment.Deployment{ID: id, Status: deployment.StatusReady}
}

func running(id string) deployment.Deployment {
	return deployment.Deployment{ID: id, Status: deployment.StatusInProgress}
}

// Register the listing as consecutive pages, linked by tokens "page-1", "page-2", ...
func listPages(service *deployment.MockService, pages ...[]deployment.Deployment) {
	for i, deployments := range pages {
		token := ""
		if i > 0 {
			token = fmt.Sprintf("page-%d", i)
		}
		next := ""
		if i < len(pages)-1 {
			next = fmt.Sprintf("page-%d", i+1)
		}
		service.On("ListDeployments", mock.Anything, token).Return(&deployment.Page{
			Deployments: deployments,
			NextToken:   next,
		}, nil).Once()
	}
}

func stillReady(service *deployment.MockService, ids ...string) {
	for _, id := range ids {
		d := ready(id)
		service.On("GetDeployment", mock.Anything, id).Return(&d, nil).Once()
	}
}

func messages(hook *test.Hook, level log.Level) []string {
	msgs := make([]string, 0)
	for _, entry := range hook.AllEntries() {
		if entry.Level == level {
			msgs = append(msgs, entry.Message)
		}
	}
	return msgs
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("ready deployments spread over two pages", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		service := deployment.NewMockService(t)

		listPages(service,
			[]deployment.Deployment{ready("d1"), running("d2")},
			[]deployment.Deployment{ready("d3")},
		)
		stillReady(service, "d1", "d3")
		service.On("UpdateStatus", mock.Anything, "d1", deployment.StatusSucceeded).Return(nil).Once()
		service.On("UpdateStatus", mock.Anything, "d3", deployment.StatusSucceeded).Return(nil).Once()

		attempted := reconciler.New(service, logger).Reconcile(ctx)

		assert.Equal(t, 2, attempted)
		service.AssertNumberOfCalls(t, "UpdateStatus", 2)
		service.AssertNotCalled(t, "UpdateStatus", mock.Anything, "d2", mock.Anything)
		assert.Contains(t, messages(hook, log.InfoLevel), "Successfully updated deployment d1 to Succeeded")
		assert.Contains(t, messages(hook, log.InfoLevel), "Successfully updated deployment d3 to Succeeded")
		assert.Contains(t, messages(hook, log.InfoLevel), "Updated 2 deployments to Succeeded")
		assert.Empty(t, messages(hook, log.ErrorLevel))
	})

	t.Run("no ready deployments means no updates", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		service := deployment.NewMockService(t)

		listPages(service,
			[]deployment.Deployment{running("d1"), {ID: "d2", Status: deployment.StatusSucceeded}},
			[]deployment.Deployment{{ID: "d3", Status: deployment.StatusFailed}},
		)

		attempted := reconciler.New(service, logger).Reconcile(ctx)

		assert.Equal(t, 0, attempted)
		service.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		service.AssertNotCalled(t, "GetDeployment", mock.Anything, mock.Anything)
		assert.Equal(t, "No deployments in Ready state found", hook.LastEntry().Message)
	})

	t.Run("empty deployment set", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		service := deployment.NewMockService(t)
		listPages(service, []deployment.Deployment{})

		attempted := reconciler.New(service, logger).Reconcile(ctx)

		assert.Equal(t, 0, attempted)
		assert.Equal(t, log.InfoLevel, hook.LastEntry().Level)
	})

	t.Run("a rejected update does not stop the remaining deployments", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		service := deployment.NewMockService(t)

		listPages(service, []deployment.Deployment{ready("d1"), ready("d2"), ready("d3")})
		stillReady(service, "d1", "d2", "d3")
		service.On("UpdateStatus", mock.Anything, "d1", deployment.StatusSucceeded).Return(nil).Once()
		service.On("UpdateStatus", mock.Anything, "d2", deployment.StatusSucceeded).Return(fmt.Errorf("InvalidDeploymentStatusException")).Once()
		service.On("UpdateStatus", mock.Anything, "d3", deployment.StatusSucceeded).Return(nil).Once()

		attempted := reconciler.New(service, logger).Reconcile(ctx)

		assert.Equal(t, 3, attempted)
		service.AssertNumberOfCalls(t, "UpdateStatus", 3)

		errors := make([]*log.Entry, 0)
		for _, entry := range hook.AllEntries() {
			if entry.Level == log.ErrorLevel {
				errors = append(errors, entry)
			}
		}
		if assert.Len(t, errors, 1) {
			assert.Equal(t, "d2", errors[0].Data["deployment_id"])
			assert.Equal(t, "Error updating deployment d2: InvalidDeploymentStatusException", errors[0].Message)
		}
		assert.Contains(t, messages(hook, log.InfoLevel), "Updated 2 deployments to Succeeded")
	})

	t.Run("listing failure on a later page aborts the pass", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		service := deployment.NewMockService(t)

		service.On("ListDeployments", mock.Anything, "").Return(&deployment.Page{
			Deployments: []deployment.Deployment{ready("d1")},
			NextToken:   "page-1",
		}, nil).Once()
		service.On("ListDeployments", mock.Anything, "page-1").Return(nil, fmt.Errorf("AccessDeniedException")).Once()

		attempted := reconciler.New(service, logger).Reconcile(ctx)

		assert.Equal(t, 0, attempted)
		service.AssertNotCalled(t, "GetDeployment", mock.Anything, mock.Anything)
		service.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
		assert.Equal(t, "Error listing deployments: AccessDeniedException", hook.LastEntry().Message)
	})

	t.Run("deployment that left Ready before the update is skipped", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		service := deployment.NewMockService(t)

		listPages(service, []deployment.Deployment{ready("d1"), ready("d2")})
		moved := deployment.Deployment{ID: "d1", Status: deployment.StatusStopped}
		service.On("GetDeployment", mock.Anything, "d1").Return(&moved, nil).Once()
		stillReady(service, "d2")
		service.On("UpdateStatus", mock.Anything, "d2", deployment.StatusSucceeded).Return(nil).Once()

		attempted := reconciler.New(service, logger).Reconcile(ctx)

		assert.Equal(t, 1, attempted)
		service.AssertNotCalled(t, "UpdateStatus", mock.Anything, "d1", mock.Anything)
	})

	t.Run("detail lookup failure is logged and skipped", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		service := deployment.NewMockService(t)
		lookupFailed := testutil.ToFloat64(metrics.LookupFailed)
		updateFailed := testutil.ToFloat64(metrics.UpdateFailed)

		listPages(service, []deployment.Deployment{ready("d1"), ready("d2")})
		service.On("GetDeployment", mock.Anything, "d1").Return(nil, fmt.Errorf("DeploymentDoesNotExistException")).Once()
		stillReady(service, "d2")
		service.On("UpdateStatus", mock.Anything, "d2", deployment.StatusSucceeded).Return(nil).Once()

		attempted := reconciler.New(service, logger).Reconcile(ctx)

		assert.Equal(t, 1, attempted)
		assert.Contains(t, messages(hook, log.ErrorLevel), "Error retrieving deployment d1: DeploymentDoesNotExistException")
		assert.Equal(t, lookupFailed+1, testutil.ToFloat64(metrics.LookupFailed))
		assert.Equal(t, updateFailed, testutil.ToFloat64(metrics.UpdateFailed), "no status update was attempted")
	})
}
