package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/config"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

// AcademicStanding summarises whether a student may move to the next semester.
type AcademicStanding string

const (
	StandingProceed AcademicStanding = "Proceed"
	StandingRemain  AcademicStanding = "Remain"
)

// SemesterPolicy picks the semester index offered next from a student's history.
type SemesterPolicy interface {
	Name() string
	NextIndex(history []models.StudentSemester) int
}

type highestIndexPolicy struct{}

func (highestIndexPolicy) Name() string { return config.SemesterPolicyHighest }

// NextIndex offers the semester after the highest index ever reached.
func (highestIndexPolicy) NextIndex(history []models.StudentSemester) int {
	return highestIndex(history) + 1
}

type latestAttemptPolicy struct{}

func (latestAttemptPolicy) Name() string { return config.SemesterPolicyLatest }

// NextIndex offers the semester after the most recent attempt, ordered by term code.
func (latestAttemptPolicy) NextIndex(history []models.StudentSemester) int {
	ordered := chronological(history)
	if len(ordered) == 0 {
		return 1
	}
	return ordered[len(ordered)-1].SemesterNumber + 1
}

// PolicyByName resolves a configured policy name, defaulting to highest.
func PolicyByName(name string) SemesterPolicy {
	if strings.EqualFold(name, config.SemesterPolicyLatest) {
		return latestAttemptPolicy{}
	}
	return highestIndexPolicy{}
}

// ModuleOutcome is the latest counted attempt of one module.
type ModuleOutcome struct {
	Module         models.StudentModule
	SemesterNumber int
	TermCode       string
}

// Standing is the academic standing computed from latest attempts.
type Standing struct {
	Status               AcademicStanding
	FailedModules        []models.StudentModule
	SupplementaryModules []models.StudentModule
}

// IneligibilityReason is attached as details to an ineligibility error.
type IneligibilityReason struct {
	FailedModules        []string `json:"failedModules"`
	SupplementaryModules []string `json:"supplementaryModules"`
	Detail               string   `json:"detail"`
}

// EligibleModule is a catalog module with the enrollment status it would carry.
type EligibleModule struct {
	models.SemesterModule
	Status models.ModuleStatus `json:"status"`
}

// Eligibility is the resolver result for one student.
type Eligibility struct {
	Modules        []EligibleModule      `json:"modules"`
	SemesterNumber string                `json:"semesterNumber"`
	SemesterStatus models.SemesterStatus `json:"semesterStatus"`
	Standing       AcademicStanding      `json:"standing"`
	Overridden     bool                  `json:"overridden"`
}

// EligibilityInput carries everything the resolver needs.
type EligibilityInput struct {
	History         []models.StudentSemester
	Catalog         []models.SemesterModule
	RemainThreshold int
	Policy          SemesterPolicy
	// Override lets a Remain standing through without changing the computed standing.
	Override bool
}

// FormatSemesterNumber renders a semester index as a two digit string.
func FormatSemesterNumber(index int) string {
	return fmt.Sprintf("%02d", index)
}

// LatestAttempts returns the most recent counted attempt of every module keyed by module id.
func LatestAttempts(history []models.StudentSemester) map[string]ModuleOutcome {
	latest := make(map[string]ModuleOutcome)
	for _, semester := range chronological(history) {
		for _, module := range semester.Modules {
			if !module.Counted() || module.ModuleID == "" {
				continue
			}
			latest[module.ModuleID] = ModuleOutcome{Module: module, SemesterNumber: semester.SemesterNumber, TermCode: semester.TermCode}
		}
	}
	return latest
}

// ComputeStanding derives the standing; Remain once failed modules reach threshold.
func ComputeStanding(latest map[string]ModuleOutcome, threshold int) Standing {
	standing := Standing{Status: StandingProceed}
	for _, id := range sortedKeys(latest) {
		module := latest[id].Module
		switch {
		case module.Failed():
			standing.FailedModules = append(standing.FailedModules, module)
		case module.Supplementary():
			standing.SupplementaryModules = append(standing.SupplementaryModules, module)
		}
	}
	if threshold > 0 && len(standing.FailedModules) >= threshold {
		standing.Status = StandingRemain
	}
	return standing
}

// ResolveEligibility lists the modules a student may take next with their statuses.
// A Remain standing fails with an ineligibility error unless Override is set.
func ResolveEligibility(input EligibilityInput) (*Eligibility, error) {
	policy := input.Policy
	if policy == nil {
		policy = highestIndexPolicy{}
	}

	latest := LatestAttempts(input.History)
	standing := ComputeStanding(latest, input.RemainThreshold)
	if standing.Status == StandingRemain && !input.Override {
		reason := IneligibilityReason{
			FailedModules:        moduleCodes(standing.FailedModules),
			SupplementaryModules: moduleCodes(standing.SupplementaryModules),
			Detail:               fmt.Sprintf("%d failed modules reach the remain threshold of %d", len(standing.FailedModules), input.RemainThreshold),
		}
		return nil, appErrors.WithDetails(appErrors.ErrIneligible, "student must remain in semester", reason)
	}

	next := policy.NextIndex(input.History)
	if next < 1 {
		next = 1
	}

	catalog := append([]models.SemesterModule(nil), input.Catalog...)
	sort.SliceStable(catalog, func(i, j int) bool {
		if catalog[i].SemesterNumber != catalog[j].SemesterNumber {
			return catalog[i].SemesterNumber < catalog[j].SemesterNumber
		}
		return catalog[i].Code < catalog[j].Code
	})

	var (
		modules []EligibleModule
		repeats int
		offered = make(map[string]struct{})
	)
	for _, module := range catalog {
		if module.SemesterNumber > next {
			continue
		}
		if _, dup := offered[module.ModuleID]; dup {
			continue
		}
		attempt, attempted := latest[module.ModuleID]
		switch {
		case attempted && attempt.Module.Failed():
			repeats++
			modules = append(modules, EligibleModule{SemesterModule: module, Status: models.RepeatStatus(repeats)})
		case !attempted && module.SemesterNumber == next:
			modules = append(modules, EligibleModule{SemesterModule: module, Status: freshStatus(module)})
		default:
			continue
		}
		offered[module.ModuleID] = struct{}{}
	}

	return &Eligibility{
		Modules:        modules,
		SemesterNumber: FormatSemesterNumber(next),
		SemesterStatus: semesterStatusFor(next, input.History),
		Standing:       standing.Status,
		Overridden:     standing.Status == StandingRemain && input.Override,
	}, nil
}

// DetermineSemesterStatus derives the semester number and status of a selection.
// Non-repeat modules must share one semester index; an all-repeat selection uses the highest index.
func DetermineSemesterStatus(selected []EligibleModule, history []models.StudentSemester) (string, models.SemesterStatus, error) {
	if len(selected) == 0 {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "at least one module is required")
	}

	index, maxIndex := 0, 0
	for _, module := range selected {
		if module.SemesterNumber > maxIndex {
			maxIndex = module.SemesterNumber
		}
		if module.Status.IsRepeat() {
			continue
		}
		if index != 0 && module.SemesterNumber != index {
			return "", "", appErrors.WithDetails(appErrors.ErrValidation, "selected modules span multiple semesters", map[string]int{
				"expected": index,
				"found":    module.SemesterNumber,
			})
		}
		index = module.SemesterNumber
	}
	if index == 0 {
		index = maxIndex
	}
	if index < 1 {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "selected modules carry no semester index")
	}
	return FormatSemesterNumber(index), semesterStatusFor(index, history), nil
}

// OutstandingModules returns latest-failed modules that the selection does not re-attempt.
func OutstandingModules(history []models.StudentSemester, selectedModuleIDs map[string]struct{}) []models.StudentModule {
	latest := LatestAttempts(history)
	var outstanding []models.StudentModule
	for _, id := range sortedKeys(latest) {
		module := latest[id].Module
		if !module.Failed() {
			continue
		}
		if _, ok := selectedModuleIDs[id]; ok {
			continue
		}
		outstanding = append(outstanding, module)
	}
	return outstanding
}

func freshStatus(module models.SemesterModule) models.ModuleStatus {
	if module.Type == models.ModuleTypeElective {
		return models.ModuleStatusElective
	}
	return models.ModuleStatusCompulsory
}

func semesterStatusFor(index int, history []models.StudentSemester) models.SemesterStatus {
	if index <= highestIndex(history) {
		return models.SemesterStatusRepeat
	}
	return models.SemesterStatusActive
}

func highestIndex(history []models.StudentSemester) int {
	highest := 0
	for _, semester := range history {
		if semester.SemesterNumber > highest {
			highest = semester.SemesterNumber
		}
	}
	return highest
}

func chronological(history []models.StudentSemester) []models.StudentSemester {
	ordered := append([]models.StudentSemester(nil), history...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].TermCode < ordered[j].TermCode })
	return ordered
}

func sortedKeys(latest map[string]ModuleOutcome) []string {
	keys := make([]string, 0, len(latest))
	for key := range latest {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func moduleCodes(modules []models.StudentModule) []string {
	codes := make([]string, 0, len(modules))
	for _, module := range modules {
		codes = append(codes, module.ModuleCode)
	}
	return codes
}
