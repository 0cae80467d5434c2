package temporal

import (
	"go.temporal.io/sdk/workflow"
)

const ReleaseStorageWorkflowName = "ReleaseStorageWorkflow"

type WorkflowInput struct {
	DocumentID string
	EmployeeID string
	StorageRef string
}

type WorkflowResult struct {
	DocumentID string
	StorageRef string
	Released   bool
}

// ReleaseStorageWorkflow deletes the file behind a superseded document.
func ReleaseStorageWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	actCtx := mustActivityContext(ctx, ActivityPolicyDeleteObject)

	err := workflow.ExecuteActivity(actCtx, (*Activities).DeleteObjectActivity, DeleteObjectInput{
		DocumentID: input.DocumentID,
		StorageRef: input.StorageRef,
	}).Get(ctx, nil)
	if err != nil {
		logger.Error("storage object leaked", "document_id", input.DocumentID, "employee_id", input.EmployeeID, "storage_ref", input.StorageRef, "error", err)
		return WorkflowResult{DocumentID: input.DocumentID, StorageRef: input.StorageRef}, err
	}

	return WorkflowResult{DocumentID: input.DocumentID, StorageRef: input.StorageRef, Released: true}, nil
}
