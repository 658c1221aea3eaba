package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/entropy"
)

func TestRoleNames(t *testing.T) {
	for _, r := range Roles {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseRole("kingpin")
	assert.Error(t, err)
	assert.False(t, Role(7).Valid())
	assert.Equal(t, "role(7)", Role(7).String())
}

func TestRecordAcquisition(t *testing.T) {
	a := New(RoleTrafficker, 0, 0)

	a.Expertise = 0.1
	a.RecordAcquisition(true)
	assert.Equal(t, 0.2, a.Expertise, "success lifts low expertise to the floor")
	assert.Equal(t, 1, a.Acquisitions)

	a.Expertise = 0.5
	a.RecordAcquisition(true)
	assert.Greater(t, a.Expertise, 0.5)
	assert.LessOrEqual(t, a.Expertise, 1.0)

	a.Expertise = 0.9
	a.RecordAcquisition(false)
	assert.Equal(t, 0.8, a.Expertise, "failure caps high expertise")

	a.Expertise = 0.5
	a.RecordAcquisition(false)
	assert.Less(t, a.Expertise, 0.5)
	assert.GreaterOrEqual(t, a.Expertise, 0.0)
	assert.Equal(t, 2, a.Acquisitions)
}

func TestDriftStaysBounded(t *testing.T) {
	src := entropy.New(1)
	a := New(RoleRetailer, 0, 0)
	for i := 0; i < 10000; i++ {
		a.Drift(src)
		require.GreaterOrEqual(t, a.Expertise, ExpertiseMin)
		require.LessOrEqual(t, a.Expertise, ExpertiseMax)
	}
}

func TestSeize(t *testing.T) {
	a := New(RolePackager, 42.5, 0)
	assert.Equal(t, 42.5, a.Seize())
	assert.Zero(t, a.Drug)
	assert.False(t, a.Available)
}

func TestCapacity(t *testing.T) {
	a := New(RoleRetailer, 150, 0)
	assert.Equal(t, 50.0, a.Capacity(200))
	a.UpdateAvailability(200)
	assert.True(t, a.Available)
	a.Drug = 250
	assert.Zero(t, a.Capacity(200))
	a.UpdateAvailability(200)
	assert.False(t, a.Available)
}

func TestSpawnPopulationOrderAndExpertise(t *testing.T) {
	sp := NewSpawner(entropy.New(2024))
	pop := sp.SpawnPopulation(2, 3, 4)
	require.Len(t, pop, 9)
	want := []Role{0, 0, 1, 1, 1, 2, 2, 2, 2}
	for i, a := range pop {
		assert.Equal(t, want[i], a.Role)
		assert.True(t, a.Active)
		assert.GreaterOrEqual(t, a.Expertise, ExpertiseMin)
		assert.LessOrEqual(t, a.Expertise, ExpertiseMax)
	}

	again := NewSpawner(entropy.New(2024)).SpawnPopulation(2, 3, 4)
	for i := range pop {
		assert.Equal(t, pop[i].Expertise, again[i].Expertise)
	}
}
