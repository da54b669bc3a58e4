package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

func studentModule(moduleID, code, grade string) models.StudentModule {
	return models.StudentModule{ModuleID: moduleID, ModuleCode: code, Grade: grade, Status: "Compulsory"}
}

func catalogModule(id, moduleID, code string, semester int, moduleType models.ModuleType) models.SemesterModule {
	return models.SemesterModule{ID: id, ModuleID: moduleID, Code: code, SemesterNumber: semester, Type: moduleType}
}

func sampleHistory() []models.StudentSemester {
	return []models.StudentSemester{
		{ID: "sem-1", TermCode: "2024-02", SemesterNumber: 1, Modules: []models.StudentModule{
			studentModule("mod-x", "DIT110", "F"),
			studentModule("mod-a", "DIT111", "B"),
		}},
	}
}

func sampleCatalog() []models.SemesterModule {
	return []models.SemesterModule{
		catalogModule("sm-x", "mod-x", "DIT110", 1, models.ModuleTypeCore),
		catalogModule("sm-a", "mod-a", "DIT111", 1, models.ModuleTypeCore),
		catalogModule("sm-y", "mod-y", "DIT210", 2, models.ModuleTypeCore),
		catalogModule("sm-e", "mod-e", "DIT299", 2, models.ModuleTypeElective),
		catalogModule("sm-z", "mod-z", "DIT310", 3, models.ModuleTypeCore),
	}
}

func statusesByCode(modules []EligibleModule) map[string]models.ModuleStatus {
	out := make(map[string]models.ModuleStatus, len(modules))
	for _, module := range modules {
		out[module.Code] = module.Status
	}
	return out
}

func TestResolveEligibilityRepeatNumbering(t *testing.T) {
	result, err := ResolveEligibility(EligibilityInput{
		History:         sampleHistory(),
		Catalog:         sampleCatalog(),
		RemainThreshold: 3,
	})
	require.NoError(t, err)

	statuses := statusesByCode(result.Modules)
	assert.Equal(t, models.ModuleStatus("Repeat1"), statuses["DIT110"])
	assert.Equal(t, models.ModuleStatusCompulsory, statuses["DIT210"])
	assert.Equal(t, models.ModuleStatusElective, statuses["DIT299"])
	assert.NotContains(t, statuses, "DIT111")
	assert.NotContains(t, statuses, "DIT310")
	assert.Equal(t, "02", result.SemesterNumber)
	assert.Equal(t, models.SemesterStatusActive, result.SemesterStatus)
	assert.Equal(t, StandingProceed, result.Standing)
}

func TestResolveEligibilityRepeatTierCollapses(t *testing.T) {
	var failed []models.StudentModule
	var catalog []models.SemesterModule
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		failed = append(failed, studentModule("mod-"+id, "M"+id, "F"))
		catalog = append(catalog, catalogModule("sm-"+id, "mod-"+id, "M"+id, 1, models.ModuleTypeCore))
	}
	history := []models.StudentSemester{{TermCode: "2024-02", SemesterNumber: 1, Modules: failed}}

	result, err := ResolveEligibility(EligibilityInput{History: history, Catalog: catalog, Override: true, RemainThreshold: 3})
	require.NoError(t, err)
	require.Len(t, result.Modules, 8)
	assert.Equal(t, models.ModuleStatus("Repeat7"), result.Modules[6].Status)
	assert.Equal(t, models.ModuleStatus("Repeat1"), result.Modules[7].Status)
	assert.True(t, result.Overridden)
}

func TestResolveEligibilityRemainInSemester(t *testing.T) {
	history := []models.StudentSemester{{TermCode: "2024-02", SemesterNumber: 1, Modules: []models.StudentModule{
		studentModule("mod-1", "A1", "F"),
		studentModule("mod-2", "A2", "X"),
		studentModule("mod-3", "A3", "GNS"),
		studentModule("mod-4", "A4", "PP"),
	}}}

	_, err := ResolveEligibility(EligibilityInput{History: history, RemainThreshold: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIneligible.Code, appErrors.Kind(err))

	reason, ok := appErrors.FromError(err).Details.(IneligibilityReason)
	require.True(t, ok)
	assert.Equal(t, []string{"A1", "A2", "A3"}, reason.FailedModules)
	assert.Equal(t, []string{"A4"}, reason.SupplementaryModules)
}

func TestResolveEligibilityOverrideKeepsStanding(t *testing.T) {
	history := []models.StudentSemester{{TermCode: "2024-02", SemesterNumber: 1, Modules: []models.StudentModule{
		studentModule("mod-1", "A1", "F"),
		studentModule("mod-2", "A2", "F"),
	}}}

	result, err := ResolveEligibility(EligibilityInput{History: history, RemainThreshold: 2, Override: true})
	require.NoError(t, err)
	assert.Equal(t, StandingRemain, result.Standing)
	assert.Equal(t, "02", result.SemesterNumber)
}

func TestLatestAttemptWins(t *testing.T) {
	history := []models.StudentSemester{
		{TermCode: "2025-02", SemesterNumber: 2, Modules: []models.StudentModule{studentModule("mod-x", "DIT110", "C")}},
		{TermCode: "2024-02", SemesterNumber: 1, Modules: []models.StudentModule{studentModule("mod-x", "DIT110", "F")}},
	}
	latest := LatestAttempts(history)
	assert.False(t, latest["mod-x"].Module.Failed())
	assert.Equal(t, 2, latest["mod-x"].SemesterNumber)
}

func TestLatestAttemptsIgnoresDroppedRows(t *testing.T) {
	dropped := studentModule("mod-x", "DIT110", "F")
	dropped.Status = "Drop"
	history := []models.StudentSemester{{TermCode: "2024-02", SemesterNumber: 1, Modules: []models.StudentModule{dropped}}}

	assert.Empty(t, LatestAttempts(history))
}

func TestSemesterPolicies(t *testing.T) {
	history := []models.StudentSemester{
		{TermCode: "2023-02", SemesterNumber: 3},
		{TermCode: "2024-02", SemesterNumber: 2},
	}
	assert.Equal(t, 4, PolicyByName("highest").NextIndex(history))
	assert.Equal(t, 3, PolicyByName("latest").NextIndex(history))
	assert.Equal(t, 1, PolicyByName("latest").NextIndex(nil))
	assert.Equal(t, "highest", PolicyByName("unknown").Name())
}

func TestResolveEligibilityLatestPolicyMarksRepeat(t *testing.T) {
	history := []models.StudentSemester{
		{TermCode: "2023-02", SemesterNumber: 3},
		{TermCode: "2024-02", SemesterNumber: 2},
	}
	result, err := ResolveEligibility(EligibilityInput{History: history, Policy: PolicyByName("latest"), RemainThreshold: 3})
	require.NoError(t, err)
	assert.Equal(t, "03", result.SemesterNumber)
	assert.Equal(t, models.SemesterStatusRepeat, result.SemesterStatus)
}

func TestDetermineSemesterStatus(t *testing.T) {
	history := sampleHistory()

	number, status, err := DetermineSemesterStatus([]EligibleModule{
		{SemesterModule: catalogModule("sm-x", "mod-x", "DIT110", 1, models.ModuleTypeCore), Status: models.RepeatStatus(1)},
		{SemesterModule: catalogModule("sm-y", "mod-y", "DIT210", 2, models.ModuleTypeCore), Status: models.ModuleStatusCompulsory},
	}, history)
	require.NoError(t, err)
	assert.Equal(t, "02", number)
	assert.Equal(t, models.SemesterStatusActive, status)

	number, status, err = DetermineSemesterStatus([]EligibleModule{
		{SemesterModule: catalogModule("sm-x", "mod-x", "DIT110", 1, models.ModuleTypeCore), Status: models.RepeatStatus(1)},
	}, history)
	require.NoError(t, err)
	assert.Equal(t, "01", number)
	assert.Equal(t, models.SemesterStatusRepeat, status)
}

func TestDetermineSemesterStatusRejectsMixedIndexes(t *testing.T) {
	_, _, err := DetermineSemesterStatus([]EligibleModule{
		{SemesterModule: catalogModule("sm-y", "mod-y", "DIT210", 2, models.ModuleTypeCore), Status: models.ModuleStatusCompulsory},
		{SemesterModule: catalogModule("sm-z", "mod-z", "DIT310", 3, models.ModuleTypeCore), Status: models.ModuleStatusCompulsory},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.Kind(err))
}

func TestOutstandingModules(t *testing.T) {
	history := sampleHistory()
	assert.Len(t, OutstandingModules(history, map[string]struct{}{}), 1)
	assert.Empty(t, OutstandingModules(history, map[string]struct{}{"mod-x": {}}))
}
