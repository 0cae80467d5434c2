package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"visa-onboarding-service/internal/domain"
)

type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// ReleaseQueue starts one ReleaseStorageWorkflow per superseded document.
type ReleaseQueue struct {
	client    workflowStarter
	taskQueue string
	idPrefix  string
}

func NewReleaseQueue(c workflowStarter, taskQueue, idPrefix string) *ReleaseQueue {
	return &ReleaseQueue{client: c, taskQueue: taskQueue, idPrefix: idPrefix}
}

func (q *ReleaseQueue) EnqueueRelease(ctx context.Context, r domain.StorageRelease) error {
	workflowID := q.workflowID(r.DocumentID)
	_, err := q.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: q.taskQueue,
	}, ReleaseStorageWorkflowName, WorkflowInput{
		DocumentID: r.DocumentID,
		EmployeeID: r.EmployeeID,
		StorageRef: r.StorageRef,
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return fmt.Errorf("start release workflow %s: %w", workflowID, err)
	}
	return nil
}

func (q *ReleaseQueue) workflowID(documentID string) string {
	return fmt.Sprintf("%s-%s", q.idPrefix, documentID)
}
