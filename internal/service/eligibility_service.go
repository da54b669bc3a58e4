package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/config"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

type academicHistoryReader interface {
	FindByStdNo(ctx context.Context, stdNo int64) (*models.Student, error)
	ListPrograms(ctx context.Context, stdNo int64) ([]models.StudentProgram, error)
	ListSemesters(ctx context.Context, studentProgramID string) ([]models.StudentSemester, error)
}

type moduleCatalogReader interface {
	ListByStructure(ctx context.Context, structureID string) ([]models.SemesterModule, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.SemesterModule, error)
}

// StudentHistory is the academic context of one student: the active program,
// every recorded semester across all programs and the active structure's catalog.
type StudentHistory struct {
	Student   models.Student
	Program   models.StudentProgram
	Semesters []models.StudentSemester
	Catalog   []models.SemesterModule
}

// SemesterStatusResult is returned by DetermineSemesterStatus.
type SemesterStatusResult struct {
	SemesterNumber string                `json:"semesterNumber"`
	SemesterStatus models.SemesterStatus `json:"semesterStatus"`
	Modules        []EligibleModule      `json:"modules"`
}

// EligibilityService loads academic history and runs the eligibility resolver over it.
type EligibilityService struct {
	students academicHistoryReader
	catalog  moduleCatalogReader
	cfg      *config.RegistrationConfig
	logger   *zap.Logger
}

// NewEligibilityService constructs EligibilityService.
func NewEligibilityService(students academicHistoryReader, catalog moduleCatalogReader, cfg *config.RegistrationConfig, logger *zap.Logger) *EligibilityService {
	if cfg == nil {
		cfg = &config.RegistrationConfig{MaxModules: 8, RemainThreshold: 3, SemesterPolicy: config.SemesterPolicyHighest}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{students: students, catalog: catalog, cfg: cfg, logger: logger}
}

// LoadHistory resolves the student and loads semesters and catalog concurrently.
func (s *EligibilityService) LoadHistory(ctx context.Context, stdNo int64) (*StudentHistory, error) {
	student, err := s.students.FindByStdNo(ctx, stdNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Storage(err, "failed to load student")
	}
	programs, err := s.students.ListPrograms(ctx, stdNo)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load student programs")
	}
	active, ok := activeProgram(programs)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no active program")
	}

	history := &StudentHistory{Student: *student, Program: active}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, program := range programs {
		program := program
		g.Go(func() error {
			semesters, err := s.students.ListSemesters(gctx, program.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			history.Semesters = append(history.Semesters, semesters...)
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		catalog, err := s.catalog.ListByStructure(gctx, active.StructureID)
		if err != nil {
			return err
		}
		history.Catalog = catalog
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Storage(err, "failed to load academic history")
	}
	return history, nil
}

// EligibleModules resolves the modules the student may register for next.
func (s *EligibilityService) EligibleModules(ctx context.Context, stdNo int64, override bool) (*Eligibility, error) {
	history, err := s.LoadHistory(ctx, stdNo)
	if err != nil {
		return nil, err
	}
	result, err := ResolveEligibility(EligibilityInput{
		History:         history.Semesters,
		Catalog:         history.Catalog,
		RemainThreshold: s.cfg.RemainThreshold,
		Policy:          PolicyByName(s.cfg.SemesterPolicy),
		Override:        override,
	})
	if err != nil {
		return nil, err
	}
	if result.Overridden {
		s.logger.Info("eligibility override applied", zap.Int64("std_no", stdNo), zap.String("semester", result.SemesterNumber))
	}
	return result, nil
}

// DetermineSemesterStatus derives the semester number and status for a module selection.
func (s *EligibilityService) DetermineSemesterStatus(ctx context.Context, stdNo int64, selections []models.ModuleSelection) (*SemesterStatusResult, error) {
	history, err := s.LoadHistory(ctx, stdNo)
	if err != nil {
		return nil, err
	}
	selected, err := s.ResolveSelections(ctx, selections)
	if err != nil {
		return nil, err
	}
	number, status, err := DetermineSemesterStatus(selected, history.Semesters)
	if err != nil {
		return nil, err
	}
	return &SemesterStatusResult{SemesterNumber: number, SemesterStatus: status, Modules: selected}, nil
}

// ResolveSelections attaches catalog rows to selections. Unknown module ids are a validation error.
func (s *EligibilityService) ResolveSelections(ctx context.Context, selections []models.ModuleSelection) ([]EligibleModule, error) {
	ids := make([]string, 0, len(selections))
	for _, selection := range selections {
		ids = append(ids, selection.SemesterModuleID)
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load semester modules")
	}

	var unknown []string
	selected := make([]EligibleModule, 0, len(selections))
	for _, selection := range selections {
		module, ok := found[selection.SemesterModuleID]
		if !ok {
			unknown = append(unknown, selection.SemesterModuleID)
			continue
		}
		selected = append(selected, EligibleModule{SemesterModule: module, Status: selection.ModuleStatus})
	}
	if len(unknown) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown semester modules", map[string][]string{"semesterModuleIds": unknown})
	}
	return selected, nil
}

func activeProgram(programs []models.StudentProgram) (models.StudentProgram, bool) {
	for _, program := range programs {
		if program.Status == models.ProgramStatusActive {
			return program, true
		}
	}
	return models.StudentProgram{}, false
}
