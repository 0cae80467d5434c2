package visa

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visa-onboarding-service/internal/domain"
	"visa-onboarding-service/internal/lock"
)

const (
	defaultPresignExpiry  = 15 * time.Minute
	defaultReleaseTimeout = 3 * time.Second
)

type Store interface {
	ListDocuments(ctx context.Context, employeeID string) ([]domain.DocumentRecord, error)
	GetDocument(ctx context.Context, documentID string) (domain.DocumentRecord, error)
	// ReplaceDocument inserts rec and removes every other record of the same
	// employee and type in one transaction. It returns the removed records.
	ReplaceDocument(ctx context.Context, rec domain.DocumentRecord) ([]domain.DocumentRecord, error)
	SetDocumentStatus(ctx context.Context, documentID string, status domain.DocumentStatus, reviewedAt time.Time) error
	SetDocumentFeedback(ctx context.Context, documentID string, feedback string) error
	ListEmployeesWithDocuments(ctx context.Context) ([]domain.EmployeeDocuments, error)
}

type EligibilitySource interface {
	GetOnboardingApprovalStatus(ctx context.Context, employeeID string) (domain.OnboardingStatus, error)
}

type FileStore interface {
	PutDocument(ctx context.Context, employeeID, filename string, content []byte) (string, error)
	PresignedURL(ctx context.Context, storageRef string, expiry time.Duration) (string, error)
}

type ReleaseQueue interface {
	EnqueueRelease(ctx context.Context, release domain.StorageRelease) error
}

type Options struct {
	Store         Store
	Eligibility   EligibilitySource
	Files         FileStore
	Releases      ReleaseQueue
	Locker        lock.Locker
	Policy        domain.SequencePolicy
	Logger        *zap.Logger
	PresignExpiry time.Duration
	Now           func() time.Time
}

// Gateway is the only writer of document review state. Every mutation runs
// under the owning employee's lock and returns the re-resolved step.
type Gateway struct {
	store          Store
	eligibility    EligibilitySource
	files          FileStore
	releases       ReleaseQueue
	locker         lock.Locker
	resolver       domain.Resolver
	logger         *zap.Logger
	presignExpiry  time.Duration
	releaseTimeout time.Duration
	now            func() time.Time
}

type SubmitInput struct {
	EmployeeID string
	Type       domain.DocType
	Filename   string
	Content    []byte
}

func NewGateway(opts Options) *Gateway {
	g := &Gateway{
		store:          opts.Store,
		eligibility:    opts.Eligibility,
		files:          opts.Files,
		releases:       opts.Releases,
		locker:         opts.Locker,
		resolver:       domain.NewResolver(opts.Policy),
		logger:         opts.Logger,
		presignExpiry:  opts.PresignExpiry,
		releaseTimeout: defaultReleaseTimeout,
		now:            opts.Now,
	}
	if g.locker == nil {
		g.locker = lock.NewKeyedMutex()
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.presignExpiry <= 0 {
		g.presignExpiry = defaultPresignExpiry
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

func (g *Gateway) Policy() domain.SequencePolicy {
	return g.resolver.Policy()
}

func (g *Gateway) Submit(ctx context.Context, caller domain.Caller, in SubmitInput) (domain.Step, error) {
	if err := caller.Authorize(domain.OpSubmit); err != nil {
		return domain.Step{}, err
	}
	if caller.ID != in.EmployeeID {
		return domain.Step{}, fmt.Errorf("%w: employees submit only their own documents", domain.ErrUnauthorized)
	}
	if !g.Policy().Contains(in.Type) {
		return domain.Step{}, fmt.Errorf("%w: %q", domain.ErrInvalidDocType, in.Type)
	}
	if err := g.requireEligible(ctx, in.EmployeeID); err != nil {
		return domain.Step{}, err
	}

	unlock, err := g.locker.Lock(ctx, in.EmployeeID)
	if err != nil {
		return domain.Step{}, fmt.Errorf("lock employee %s: %w", in.EmployeeID, err)
	}
	defer unlock()

	records, err := g.store.ListDocuments(ctx, in.EmployeeID)
	if err != nil {
		return domain.Step{}, fmt.Errorf("list documents: %w", err)
	}
	current := g.resolver.Resolve(records)
	if current.Type != in.Type || current.Status == domain.StatusApproved {
		return domain.Step{}, fmt.Errorf("%w: current step is %s (%s)", domain.ErrOutOfSequence, current.Type, current.Status)
	}

	ref, err := g.files.PutDocument(ctx, in.EmployeeID, in.Filename, in.Content)
	if err != nil {
		return domain.Step{}, fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}

	rec := domain.DocumentRecord{
		ID:         uuid.NewString(),
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		Filename:   in.Filename,
		Status:     domain.StatusPending,
		StorageRef: ref,
		CreatedAt:  g.now().UTC(),
	}
	superseded, err := g.store.ReplaceDocument(ctx, rec)
	if err != nil {
		g.release(ctx, domain.StorageRelease{DocumentID: rec.ID, EmployeeID: rec.EmployeeID, StorageRef: ref})
		return domain.Step{}, fmt.Errorf("replace document: %w", err)
	}
	for _, old := range superseded {
		g.release(ctx, domain.StorageRelease{DocumentID: old.ID, EmployeeID: old.EmployeeID, StorageRef: old.StorageRef})
	}

	g.logger.Info("document submitted",
		zap.String("employee_id", in.EmployeeID),
		zap.String("document_id", rec.ID),
		zap.String("doc_type", string(in.Type)),
		zap.Int("superseded", len(superseded)),
	)
	return g.resolveEmployee(ctx, in.EmployeeID)
}

func (g *Gateway) Review(ctx context.Context, caller domain.Caller, documentID string, decision domain.DocumentStatus) (domain.Step, error) {
	if err := caller.Authorize(domain.OpReview); err != nil {
		return domain.Step{}, err
	}
	if decision != domain.StatusApproved && decision != domain.StatusRejected {
		return domain.Step{}, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, decision)
	}

	doc, err := g.store.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Step{}, err
	}
	if err := g.requireEligible(ctx, doc.EmployeeID); err != nil {
		return domain.Step{}, err
	}

	return g.withEmployeeDocument(ctx, doc.EmployeeID, documentID, func(doc domain.DocumentRecord) error {
		switch doc.Status {
		case decision:
			return nil
		case domain.StatusPending:
		default:
			return fmt.Errorf("%w: document %s is %s", domain.ErrAlreadyReviewed, documentID, doc.Status)
		}
		if err := g.store.SetDocumentStatus(ctx, documentID, decision, g.now().UTC()); err != nil {
			return fmt.Errorf("set document status: %w", err)
		}
		g.logger.Info("document reviewed",
			zap.String("reviewer_id", caller.ID),
			zap.String("employee_id", doc.EmployeeID),
			zap.String("document_id", documentID),
			zap.String("decision", string(decision)),
		)
		return nil
	})
}

func (g *Gateway) Annotate(ctx context.Context, caller domain.Caller, documentID string, feedback string) (domain.Step, error) {
	if err := caller.Authorize(domain.OpAnnotate); err != nil {
		return domain.Step{}, err
	}

	doc, err := g.store.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Step{}, err
	}

	return g.withEmployeeDocument(ctx, doc.EmployeeID, documentID, func(doc domain.DocumentRecord) error {
		if doc.Feedback == feedback {
			return nil
		}
		if err := g.store.SetDocumentFeedback(ctx, documentID, feedback); err != nil {
			return fmt.Errorf("set document feedback: %w", err)
		}
		g.logger.Info("document feedback set",
			zap.String("reviewer_id", caller.ID),
			zap.String("employee_id", doc.EmployeeID),
			zap.String("document_id", documentID),
		)
		return nil
	})
}

// NextStep lets employees read their own step and HR read anyone's.
func (g *Gateway) NextStep(ctx context.Context, caller domain.Caller, employeeID string) (domain.VisaState, error) {
	if !canView(caller, employeeID) {
		return domain.VisaState{}, fmt.Errorf("%w: cannot view employee %s", domain.ErrUnauthorized, employeeID)
	}
	status, err := g.eligibility.GetOnboardingApprovalStatus(ctx, employeeID)
	if err != nil {
		return domain.VisaState{}, err
	}
	step, err := g.resolveEmployee(ctx, employeeID)
	if err != nil {
		return domain.VisaState{}, err
	}
	return domain.VisaState{
		EmployeeID:      employeeID,
		WorkflowEnabled: domain.VisaWorkflowEnabled(status),
		Step:            step,
	}, nil
}

// ListPending returns eligible employees that still have work left.
func (g *Gateway) ListPending(ctx context.Context, caller domain.Caller) ([]domain.EmployeeStep, error) {
	return g.listSteps(ctx, caller, true)
}

// ListAll returns every eligible employee, including fully approved ones.
func (g *Gateway) ListAll(ctx context.Context, caller domain.Caller) ([]domain.EmployeeStep, error) {
	return g.listSteps(ctx, caller, false)
}

func (g *Gateway) DocumentURL(ctx context.Context, caller domain.Caller, documentID string) (string, error) {
	doc, err := g.store.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if !canView(caller, doc.EmployeeID) {
		return "", fmt.Errorf("%w: cannot view document %s", domain.ErrUnauthorized, documentID)
	}
	url, err := g.files.PresignedURL(ctx, doc.StorageRef, g.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}
	return url, nil
}

func (g *Gateway) listSteps(ctx context.Context, caller domain.Caller, pendingOnly bool) ([]domain.EmployeeStep, error) {
	if err := caller.Authorize(domain.OpListStatuses); err != nil {
		return nil, err
	}
	rows, err := g.store.ListEmployeesWithDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	policy := g.Policy()
	items := make([]domain.EmployeeStep, 0, len(rows))
	for _, row := range rows {
		if !domain.VisaWorkflowEnabled(row.Employee.OnboardingStatus) || len(row.Documents) == 0 {
			continue
		}
		step := g.resolver.Resolve(row.Documents)
		if pendingOnly && step.Terminal(policy) {
			continue
		}
		items = append(items, domain.EmployeeStep{Employee: row.Employee, Step: step})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Employee, items[j].Employee
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return items, nil
}

// withEmployeeDocument re-reads the document under the employee lock, since a
// resubmission may have replaced it between the first read and the lock.
func (g *Gateway) withEmployeeDocument(ctx context.Context, employeeID, documentID string, mutate func(domain.DocumentRecord) error) (domain.Step, error) {
	unlock, err := g.locker.Lock(ctx, employeeID)
	if err != nil {
		return domain.Step{}, fmt.Errorf("lock employee %s: %w", employeeID, err)
	}
	defer unlock()

	doc, err := g.store.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Step{}, err
	}
	if err := mutate(doc); err != nil {
		return domain.Step{}, err
	}
	return g.resolveEmployee(ctx, employeeID)
}

func (g *Gateway) resolveEmployee(ctx context.Context, employeeID string) (domain.Step, error) {
	records, err := g.store.ListDocuments(ctx, employeeID)
	if err != nil {
		return domain.Step{}, fmt.Errorf("list documents: %w", err)
	}
	return g.resolver.Resolve(records), nil
}

func (g *Gateway) requireEligible(ctx context.Context, employeeID string) error {
	status, err := g.eligibility.GetOnboardingApprovalStatus(ctx, employeeID)
	if err != nil {
		return err
	}
	if !domain.VisaWorkflowEnabled(status) {
		return fmt.Errorf("%w: onboarding status is %s", domain.ErrNotEligible, status)
	}
	return nil
}

// release hands a storage object to the release queue. Failures leak the
// object and are only logged.
func (g *Gateway) release(ctx context.Context, r domain.StorageRelease) {
	if r.StorageRef == "" {
		return
	}
	fields := []zap.Field{
		zap.String("document_id", r.DocumentID),
		zap.String("employee_id", r.EmployeeID),
		zap.String("storage_ref", r.StorageRef),
	}
	if g.releases == nil {
		g.logger.Warn("no release queue configured, storage object leaked", fields...)
		return
	}

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.releaseTimeout)
	defer cancel()
	if err := g.releases.EnqueueRelease(releaseCtx, r); err != nil {
		g.logger.Warn("enqueue storage release failed, storage object leaked", append(fields, zap.Error(err))...)
		return
	}
	g.logger.Debug("storage release enqueued", fields...)
}

func canView(caller domain.Caller, employeeID string) bool {
	switch caller.Role {
	case domain.RoleHR:
		return caller.ID != ""
	case domain.RoleEmployee:
		return caller.ID != "" && caller.ID == employeeID
	default:
		return false
	}
}
