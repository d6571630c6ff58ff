package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
	"github.com/gurkanbulca/tasktimer/internal/repository"
)

// ReportService serves the read-only views of a task.
type ReportService struct {
	store *repository.Store
	opts  options
}

func NewReportService(store *repository.Store, opts ...Option) *ReportService {
	return &ReportService{store: store, opts: newOptions(opts)}
}

// Report builds the full task report as of now.
func (s *ReportService) Report(ctx context.Context, scope models.Scope, id uuid.UUID) (*report.Report, error) {
	task, err := s.store.GetTask(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	pauses, err := s.store.ListPauses(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return report.Build(task, pauses, s.opts.clock()), nil
}

// Timeline merges the audit events and snapshots of a task, newest first.
func (s *ReportService) Timeline(ctx context.Context, scope models.Scope, id uuid.UUID) ([]report.TimelineEntry, error) {
	if _, err := s.store.GetTask(ctx, scope, id); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.store.ListSnapshots(ctx, id)
	if err != nil {
		return nil, err
	}
	pauses, err := s.store.ListPauses(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return report.Timeline(events, snapshots, pauses), nil
}

// Events returns the audit log of a task, newest first.
func (s *ReportService) Events(ctx context.Context, scope models.Scope, id uuid.UUID) ([]*models.Event, error) {
	if _, err := s.store.GetTask(ctx, scope, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

// Snapshots returns the snapshots of a task in chronological order with their
// change since the previous one.
func (s *ReportService) Snapshots(ctx context.Context, scope models.Scope, id uuid.UUID) ([]report.SnapshotView, error) {
	if _, err := s.store.GetTask(ctx, scope, id); err != nil {
		return nil, err
	}
	snapshots, err := s.store.ListSnapshots(ctx, id)
	if err != nil {
		return nil, err
	}
	return report.SnapshotDeltas(snapshots), nil
}
