package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistrationDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Registration.MaxModules)
	assert.Equal(t, 3, cfg.Registration.RemainThreshold)
	assert.Equal(t, SemesterPolicyHighest, cfg.Registration.SemesterPolicy)
	assert.True(t, cfg.Registration.AcademicClearance)
	assert.Equal(t, 2*time.Minute, cfg.Clearance.QueueCacheTTL)
}

func TestLoadRegistrationFromEnv(t *testing.T) {
	t.Setenv("REGISTRATION_MAX_MODULES", "6")
	t.Setenv("REGISTRATION_SEMESTER_POLICY", "LATEST")
	t.Setenv("REGISTRATION_ACADEMIC_CLEARANCE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Registration.MaxModules)
	assert.Equal(t, SemesterPolicyLatest, cfg.Registration.SemesterPolicy)
	assert.False(t, cfg.Registration.AcademicClearance)
}

func TestNormalisePolicyFallsBack(t *testing.T) {
	assert.Equal(t, SemesterPolicyHighest, normalisePolicy("whatever"))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
