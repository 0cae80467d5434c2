package temporal

import (
	"context"
	"strings"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

const ErrTypeInvalidRelease = "InvalidRelease"

type ObjectDeleter interface {
	DeleteDocument(ctx context.Context, objectKey string) error
}

type Activities struct {
	Blob   ObjectDeleter
	Logger *zap.Logger
}

type DeleteObjectInput struct {
	DocumentID string
	StorageRef string
}

func (a *Activities) DeleteObjectActivity(ctx context.Context, input DeleteObjectInput) error {
	ref := strings.TrimSpace(input.StorageRef)
	if ref == "" {
		return temporal.NewNonRetryableApplicationError("storage ref is empty", ErrTypeInvalidRelease, nil)
	}
	if err := a.Blob.DeleteDocument(ctx, ref); err != nil {
		a.logger().Warn("delete storage object failed",
			zap.String("document_id", input.DocumentID),
			zap.String("storage_ref", ref),
			zap.Error(err),
		)
		return err
	}
	a.logger().Info("storage object deleted",
		zap.String("document_id", input.DocumentID),
		zap.String("storage_ref", ref),
	)
	return nil
}

func (a *Activities) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
