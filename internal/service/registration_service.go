package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/internal/dto"
	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/config"
	"github.com/ntholi/registry-web-sub009/pkg/database"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

const (
	financeResetReason = "modules changed"

	// studentTermConstraint enforces one registration request per student and term.
	studentTermConstraint = "uq_registration_requests_std_term"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type registrationStore interface {
	FindByID(ctx context.Context, id string) (*models.RegistrationRequest, error)
	FindForUpdate(ctx context.Context, id string) (*models.RegistrationRequest, error)
	FindByStudentAndTerm(ctx context.Context, stdNo int64, termID string) (*models.RegistrationRequest, error)
	Create(ctx context.Context, request *models.RegistrationRequest, audit *models.AuditContext) error
	Update(ctx context.Context, request *models.RegistrationRequest, audit *models.AuditContext) error
}

type requestedModuleStore interface {
	ListByRequest(ctx context.Context, requestID string) ([]models.RequestedModule, error)
	Replace(ctx context.Context, requestID string, selections []models.ModuleSelection, audit *models.AuditContext) ([]models.RequestedModule, error)
	SetStatus(ctx context.Context, requestID string, semesterModuleIDs []string, status models.RequestedModuleStatus) (int64, error)
}

type termLookup interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type historyResolver interface {
	LoadHistory(ctx context.Context, stdNo int64) (*StudentHistory, error)
	ResolveSelections(ctx context.Context, selections []models.ModuleSelection) ([]EligibleModule, error)
}

type sponsorshipLinker interface {
	Link(ctx context.Context, stdNo int64, termID string, sponsorship models.Sponsorship, audit *models.AuditContext) (*SponsorshipLink, error)
}

type clearanceWorkflow interface {
	Fanout(ctx context.Context, requestID string, departments []models.Department, audit *models.AuditContext) ([]models.Clearance, error)
	ResetDepartment(ctx context.Context, requestID string, department models.Department, reason string, audit *models.AuditContext) (bool, error)
	ForRequest(ctx context.Context, request *models.RegistrationRequest) ([]models.Clearance, models.RegistrationStatus, error)
	InvalidateQueue(ctx context.Context)
}

type registrationMetrics interface {
	ObserveRegistration(action string)
}

// RegistrationServiceParams groups RegistrationService collaborators.
type RegistrationServiceParams struct {
	Requests     registrationStore
	Modules      requestedModuleStore
	Terms        termLookup
	Eligibility  historyResolver
	Sponsorships sponsorshipLinker
	Clearances   clearanceWorkflow
	Tx           txProvider
	Notifier     notifier
	Metrics      registrationMetrics
	Config       *config.RegistrationConfig
	Validator    *validator.Validate
	Logger       *zap.Logger
}

// RegistrationService is the transactional entry point for registration requests.
type RegistrationService struct {
	requests     registrationStore
	modules      requestedModuleStore
	terms        termLookup
	eligibility  historyResolver
	sponsorships sponsorshipLinker
	clearances   clearanceWorkflow
	tx           txProvider
	notifier     notifier
	metrics      registrationMetrics
	cfg          *config.RegistrationConfig
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(p RegistrationServiceParams) *RegistrationService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Config == nil {
		p.Config = &config.RegistrationConfig{MaxModules: 8, RemainThreshold: 3, SemesterPolicy: config.SemesterPolicyHighest}
	}
	return &RegistrationService{
		requests:     p.Requests,
		modules:      p.Modules,
		terms:        p.Terms,
		eligibility:  p.Eligibility,
		sponsorships: p.Sponsorships,
		clearances:   p.Clearances,
		tx:           p.Tx,
		notifier:     p.Notifier,
		metrics:      p.Metrics,
		cfg:          p.Config,
		validator:    p.Validator,
		logger:       p.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new registration request with its modules, sponsorship and clearances.
func (s *RegistrationService) Create(ctx context.Context, req dto.CreateRegistrationRequest, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	selections, err := s.validateSelections(req.Modules)
	if err != nil {
		return nil, err
	}
	semesterNumber := strings.TrimSpace(req.SemesterNumber)
	if semesterNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semesterNumber must not be blank")
	}
	if err := authorizeStudent(actor, req.StdNo); err != nil {
		return nil, err
	}

	history, err := s.eligibility.LoadHistory(ctx, req.StdNo)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTerm(ctx, req.TermID); err != nil {
		return nil, err
	}
	selected, err := s.eligibility.ResolveSelections(ctx, selections)
	if err != nil {
		return nil, err
	}
	existing, err := s.requests.FindByStudentAndTerm(ctx, req.StdNo, req.TermID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to check existing registration")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has a registration request for this term")
	}

	departments := s.departmentsFor(history, selected)
	audit := auditFor(actor, req.StdNo)
	request := &models.RegistrationRequest{
		ID:             uuid.NewString(),
		StdNo:          req.StdNo,
		TermID:         req.TermID,
		SemesterNumber: semesterNumber,
		SemesterStatus: models.SemesterStatus(req.SemesterStatus),
		Status:         models.RegistrationStatusPending,
		Count:          1,
		Message:        req.Message,
		CreatedAt:      s.now(),
	}

	var (
		modules    []models.RequestedModule
		clearances []models.Clearance
	)
	err = database.RunInTx(ctx, s.tx, func(ctx context.Context) error {
		if req.Sponsorship != nil {
			link, err := s.sponsorships.Link(ctx, req.StdNo, req.TermID, req.Sponsorship.Model(), audit)
			if err != nil {
				return err
			}
			sponsorID := strings.TrimSpace(req.Sponsorship.SponsorID)
			request.SponsorID = &sponsorID
			s.logger.Debug("registration sponsorship linked", zap.String("sponsored_student_id", link.SponsoredStudentID))
		}
		if err := s.requests.Create(ctx, request, audit); err != nil {
			return registrationWriteError(err)
		}
		var err error
		if clearances, err = s.clearances.Fanout(ctx, request.ID, departments, audit); err != nil {
			return err
		}
		modules, err = s.modules.Replace(ctx, request.ID, selections, audit)
		return err
	})
	if err != nil {
		return nil, txError(err, "failed to create registration")
	}

	s.afterWrite(ctx, "created", EventRegistrationSubmitted, request)
	s.logger.Info("registration created",
		zap.String("request_id", request.ID),
		zap.Int64("std_no", request.StdNo),
		zap.String("term_id", request.TermID),
		zap.Int("modules", len(modules)),
		zap.Int("clearances", len(clearances)),
	)
	return &models.RegistrationDetail{
		RegistrationRequest: *request,
		AggregateStatus:     AggregateStatus(request.Status, clearanceStatuses(clearances)),
		Modules:             modules,
		Clearances:          clearances,
	}, nil
}

// Update amends a pending request. The finance clearance is reset only when the module set changes.
func (s *RegistrationService) Update(ctx context.Context, id string, req dto.UpdateRegistrationRequest, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	selections, err := s.validateSelections(req.Modules)
	if err != nil {
		return nil, err
	}
	if req.SemesterNumber != nil && strings.TrimSpace(*req.SemesterNumber) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semesterNumber must not be blank")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeStudent(actor, current.StdNo); err != nil {
		return nil, err
	}
	if current.Status.Enrolled() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration already completed")
	}
	if req.TermID != nil && *req.TermID != current.TermID {
		if err := s.ensureTerm(ctx, *req.TermID); err != nil {
			return nil, err
		}
	}
	if _, err := s.eligibility.ResolveSelections(ctx, selections); err != nil {
		return nil, err
	}

	audit := auditFor(actor, current.StdNo)
	var (
		request *models.RegistrationRequest
		modules []models.RequestedModule
		reset   bool
	)
	err = database.RunInTx(ctx, s.tx, func(ctx context.Context) error {
		var err error
		request, err = s.requests.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if request.Status.Enrolled() {
			return appErrors.Clone(appErrors.ErrConflict, "registration already completed")
		}
		previous, err := s.modules.ListByRequest(ctx, id)
		if err != nil {
			return err
		}
		changed := !sameSelection(previous, selections)

		now := s.now()
		request.Count++
		request.Status = models.RegistrationStatusPending
		request.UpdatedAt = &now
		if req.SemesterNumber != nil {
			request.SemesterNumber = strings.TrimSpace(*req.SemesterNumber)
		}
		if req.SemesterStatus != nil {
			request.SemesterStatus = models.SemesterStatus(*req.SemesterStatus)
		}
		if req.TermID != nil {
			request.TermID = *req.TermID
		}
		if req.Message != nil {
			request.Message = req.Message
		}
		if req.Sponsorship != nil {
			if _, err := s.sponsorships.Link(ctx, request.StdNo, request.TermID, req.Sponsorship.Model(), audit); err != nil {
				return err
			}
			sponsorID := strings.TrimSpace(req.Sponsorship.SponsorID)
			request.SponsorID = &sponsorID
		}
		if err := s.requests.Update(ctx, request, audit); err != nil {
			return registrationWriteError(err)
		}
		if changed {
			if reset, err = s.clearances.ResetDepartment(ctx, id, models.DepartmentFinance, financeResetReason, audit); err != nil {
				return err
			}
		}
		modules, err = s.modules.Replace(ctx, id, selections, audit)
		return err
	})
	if err != nil {
		return nil, txError(err, "failed to update registration")
	}

	s.afterWrite(ctx, "updated", EventRegistrationUpdated, request)
	s.logger.Info("registration updated",
		zap.String("request_id", request.ID),
		zap.Int("count", request.Count),
		zap.Bool("finance_reset", reset),
	)

	clearances, aggregate, err := s.clearances.ForRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	return &models.RegistrationDetail{RegistrationRequest: *request, AggregateStatus: aggregate, Modules: modules, Clearances: clearances}, nil
}

// Get returns the read model of a request.
func (s *RegistrationService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeStudent(actor, request.StdNo); err != nil {
		return nil, err
	}
	return s.detail(ctx, request)
}

// GetForStudent returns the student's request for a term.
func (s *RegistrationService) GetForStudent(ctx context.Context, stdNo int64, termID string, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	if err := authorizeStudent(actor, stdNo); err != nil {
		return nil, err
	}
	request, err := s.requests.FindByStudentAndTerm(ctx, stdNo, termID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load registration")
	}
	if request == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return s.detail(ctx, request)
}

// Complete marks a cleared request as registered, or partial when only some modules are enrolled.
// Completion is terminal.
func (s *RegistrationService) Complete(ctx context.Context, id string, req dto.CompleteRegistrationRequest, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	audit := auditFor(actor, current.StdNo)

	var (
		request *models.RegistrationRequest
		modules []models.RequestedModule
	)
	err = database.RunInTx(ctx, s.tx, func(ctx context.Context) error {
		var err error
		request, err = s.requests.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if request.Status.Enrolled() {
			return appErrors.Clone(appErrors.ErrConflict, "registration already completed")
		}
		_, aggregate, err := s.clearances.ForRequest(ctx, request)
		if err != nil {
			return err
		}
		if aggregate != models.RegistrationStatusApproved {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("registration is %s, not cleared", aggregate))
		}

		if modules, err = s.modules.ListByRequest(ctx, id); err != nil {
			return err
		}
		registered, rejected, err := splitCompletion(modules, req.SemesterModuleIDs)
		if err != nil {
			return err
		}
		if _, err := s.modules.SetStatus(ctx, id, registered, models.RequestedModuleStatusRegistered); err != nil {
			return err
		}
		if _, err := s.modules.SetStatus(ctx, id, rejected, models.RequestedModuleStatusRejected); err != nil {
			return err
		}

		now := s.now()
		request.Status = models.RegistrationStatusRegistered
		if len(rejected) > 0 {
			request.Status = models.RegistrationStatusPartial
		}
		request.DateRegistered = &now
		request.UpdatedAt = &now
		if err := s.requests.Update(ctx, request, audit); err != nil {
			return err
		}
		modules = applyCompletion(modules, registered)
		return nil
	})
	if err != nil {
		return nil, txError(err, "failed to complete registration")
	}

	s.afterWrite(ctx, "completed", EventRegistrationCompleted, request)
	s.logger.Info("registration completed", zap.String("request_id", request.ID), zap.String("status", string(request.Status)))

	clearances, aggregate, err := s.clearances.ForRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	return &models.RegistrationDetail{RegistrationRequest: *request, AggregateStatus: aggregate, Modules: modules, Clearances: clearances}, nil
}

func (s *RegistrationService) detail(ctx context.Context, request *models.RegistrationRequest) (*models.RegistrationDetail, error) {
	modules, err := s.modules.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load requested modules")
	}
	clearances, aggregate, err := s.clearances.ForRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	return &models.RegistrationDetail{RegistrationRequest: *request, AggregateStatus: aggregate, Modules: modules, Clearances: clearances}, nil
}

func (s *RegistrationService) load(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Storage(err, "failed to load registration")
	}
	return request, nil
}

func (s *RegistrationService) ensureTerm(ctx context.Context, termID string) error {
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Storage(err, "failed to load term")
	}
	return nil
}

func (s *RegistrationService) validateSelections(payload []dto.ModuleSelectionPayload) ([]models.ModuleSelection, error) {
	maxModules := s.cfg.MaxModules
	if len(payload) < 1 || len(payload) > maxModules {
		return nil, appErrors.WithDetails(appErrors.ErrValidation,
			fmt.Sprintf("between 1 and %d modules are required", maxModules),
			map[string]int{"count": len(payload), "max": maxModules})
	}
	selections := dto.Selections(payload)
	seen := make(map[string]struct{}, len(selections))
	for _, selection := range selections {
		if !selection.ModuleStatus.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown module status %q", selection.ModuleStatus))
		}
		if _, dup := seen[selection.SemesterModuleID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("module %s selected twice", selection.SemesterModuleID))
		}
		seen[selection.SemesterModuleID] = struct{}{}
	}
	return selections, nil
}

// departmentsFor adds the academic clearance when failed modules remain that the selection does not retake.
func (s *RegistrationService) departmentsFor(history *StudentHistory, selected []EligibleModule) []models.Department {
	departments := append([]models.Department(nil), models.BaseDepartments...)
	if !s.cfg.AcademicClearance || history == nil {
		return departments
	}
	ids := make(map[string]struct{}, len(selected))
	for _, module := range selected {
		ids[module.ModuleID] = struct{}{}
	}
	if len(OutstandingModules(history.Semesters, ids)) > 0 {
		departments = append(departments, models.DepartmentAcademic)
	}
	return departments
}

func (s *RegistrationService) afterWrite(ctx context.Context, action, event string, request *models.RegistrationRequest) {
	if s.clearances != nil {
		s.clearances.InvalidateQueue(ctx)
	}
	if s.metrics != nil {
		s.metrics.ObserveRegistration(action)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, NotificationEvent{
			Type:      event,
			StdNo:     request.StdNo,
			RequestID: request.ID,
			Status:    string(request.Status),
		})
	}
}

func authorizeStudent(actor *models.JWTClaims, stdNo int64) error {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil
	}
	if actor.StdNo == nil || *actor.StdNo != stdNo {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only act on their own registration")
	}
	return nil
}

func auditFor(actor *models.JWTClaims, stdNo int64) *models.AuditContext {
	audit := actor.AuditContext()
	if audit == nil {
		return nil
	}
	audit.StdNo = &stdNo
	return audit
}

// sameSelection compares module sets by (semester module, status) pairs.
func sameSelection(previous []models.RequestedModule, next []models.ModuleSelection) bool {
	if len(previous) != len(next) {
		return false
	}
	set := make(map[models.ModuleSelection]struct{}, len(previous))
	for _, module := range previous {
		set[models.ModuleSelection{SemesterModuleID: module.SemesterModuleID, ModuleStatus: module.ModuleStatus}] = struct{}{}
	}
	for _, selection := range next {
		if _, ok := set[selection]; !ok {
			return false
		}
	}
	return true
}

func splitCompletion(modules []models.RequestedModule, chosen []string) (registered, rejected []string, err error) {
	if len(chosen) == 0 {
		for _, module := range modules {
			registered = append(registered, module.SemesterModuleID)
		}
		return registered, nil, nil
	}
	requested := make(map[string]struct{}, len(modules))
	for _, module := range modules {
		requested[module.SemesterModuleID] = struct{}{}
	}
	keep := make(map[string]struct{}, len(chosen))
	for _, id := range chosen {
		if _, ok := requested[id]; !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("module %s was not requested", id))
		}
		keep[id] = struct{}{}
	}
	for _, module := range modules {
		if _, ok := keep[module.SemesterModuleID]; ok {
			registered = append(registered, module.SemesterModuleID)
		} else {
			rejected = append(rejected, module.SemesterModuleID)
		}
	}
	return registered, rejected, nil
}

func applyCompletion(modules []models.RequestedModule, registered []string) []models.RequestedModule {
	keep := make(map[string]struct{}, len(registered))
	for _, id := range registered {
		keep[id] = struct{}{}
	}
	out := make([]models.RequestedModule, len(modules))
	for i, module := range modules {
		module.Status = models.RequestedModuleStatusRejected
		if _, ok := keep[module.SemesterModuleID]; ok {
			module.Status = models.RequestedModuleStatusRegistered
		}
		out[i] = module
	}
	return out
}

func clearanceStatuses(clearances []models.Clearance) []models.ClearanceStatus {
	statuses := make([]models.ClearanceStatus, len(clearances))
	for i, clearance := range clearances {
		statuses[i] = clearance.Status
	}
	return statuses
}

// registrationWriteError maps a duplicate (std_no, term_id) onto a conflict.
// Other unique violations stay storage failures.
func registrationWriteError(err error) error {
	if !database.IsUniqueViolation(err) {
		return err
	}
	switch database.ConstraintName(err) {
	case studentTermConstraint, "":
		return appErrors.Clone(appErrors.ErrConflict, "student already has a registration request for this term")
	default:
		return err
	}
}
