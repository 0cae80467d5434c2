package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"visa-onboarding-service/internal/domain"
)

// MemoryStore keeps employees and documents in process. It backs tests and
// local runs without postgres.
type MemoryStore struct {
	mu        sync.Mutex
	employees map[string]domain.Employee
	docs      map[string]domain.DocumentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees: make(map[string]domain.Employee),
		docs:      make(map[string]domain.DocumentRecord),
	}
}

func (m *MemoryStore) PutEmployee(emp domain.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
}

func (m *MemoryStore) SetOnboardingStatus(employeeID string, status domain.OnboardingStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp := m.employees[employeeID]
	emp.ID = employeeID
	emp.OnboardingStatus = status
	m.employees[employeeID] = emp
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) GetOnboardingApprovalStatus(_ context.Context, employeeID string) (domain.OnboardingStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return "", fmt.Errorf("employee %s: %w", employeeID, domain.ErrNotFound)
	}
	return emp.OnboardingStatus, nil
}

func (m *MemoryStore) ListDocuments(_ context.Context, employeeID string) ([]domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documentsFor(employeeID), nil
}

func (m *MemoryStore) GetDocument(_ context.Context, documentID string) (domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.docs[documentID]
	if !ok {
		return domain.DocumentRecord{}, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return rec, nil
}

func (m *MemoryStore) ReplaceDocument(_ context.Context, rec domain.DocumentRecord) ([]domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[rec.EmployeeID]; !ok {
		return nil, fmt.Errorf("employee %s: %w", rec.EmployeeID, domain.ErrNotFound)
	}
	removed := make([]domain.DocumentRecord, 0, 1)
	for id, existing := range m.docs {
		if existing.EmployeeID == rec.EmployeeID && existing.Type == rec.Type {
			removed = append(removed, existing)
			delete(m.docs, id)
		}
	}
	m.docs[rec.ID] = rec
	return removed, nil
}

func (m *MemoryStore) SetDocumentStatus(_ context.Context, documentID string, status domain.DocumentStatus, reviewedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	rec.Status = status
	rec.ReviewedAt = &reviewedAt
	m.docs[documentID] = rec
	return nil
}

func (m *MemoryStore) SetDocumentFeedback(_ context.Context, documentID string, feedback string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	rec.Feedback = feedback
	m.docs[documentID] = rec
	return nil
}

func (m *MemoryStore) ListEmployeesWithDocuments(context.Context) ([]domain.EmployeeDocuments, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EmployeeDocuments, 0, len(m.employees))
	for id, emp := range m.employees {
		out = append(out, domain.EmployeeDocuments{Employee: emp, Documents: m.documentsFor(id)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Employee.ID < out[j].Employee.ID })
	return out, nil
}

func (m *MemoryStore) documentsFor(employeeID string) []domain.DocumentRecord {
	out := make([]domain.DocumentRecord, 0)
	for _, rec := range m.docs {
		if rec.EmployeeID == employeeID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
