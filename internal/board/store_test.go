package board

import (
	"testing"

	"frontdesk-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func group(id string, status models.GroupStatus) models.AppointmentGroup {
	return models.AppointmentGroup{ID: id, ClientID: "c-" + id, Status: status}
}

func TestLoadReplacesCollection(t *testing.T) {
	s := NewStore()
	s.Load([]models.AppointmentGroup{
		group("g1", models.StatusScheduled),
		group("g2", models.StatusArrived),
	})

	require.Equal(t, 2, s.Len())

	// A reload is a full replacement, not a merge.
	s.Load([]models.AppointmentGroup{group("g3", models.StatusWalkIn)})

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("g1")
	assert.False(t, ok)
}

func TestUpsertStatusLocalOnly(t *testing.T) {
	s := NewStore()
	s.Load([]models.AppointmentGroup{group("g1", models.StatusScheduled)})

	assert.True(t, s.UpsertStatus("g1", models.StatusArrived))
	g, ok := s.Get("g1")
	require.True(t, ok)
	assert.Equal(t, models.StatusArrived, g.Status)

	assert.False(t, s.UpsertStatus("missing", models.StatusArrived))
}

func TestInsertAppearsWithoutReload(t *testing.T) {
	s := NewStore()
	s.Load([]models.AppointmentGroup{group("g1", models.StatusScheduled)})

	s.Insert(group("g2", models.StatusWalkIn))

	assert.Equal(t, 2, s.Len())
	walkIns := s.ByStatus(models.StatusWalkIn)
	require.Len(t, walkIns, 1)
	assert.Equal(t, "g2", walkIns[0].ID)
}

func TestInsertExistingKeepsPosition(t *testing.T) {
	s := NewStore()
	s.Load([]models.AppointmentGroup{
		group("g1", models.StatusScheduled),
		group("g2", models.StatusScheduled),
	})

	updated := group("g1", models.StatusScheduled)
	updated.ClientName = "renamed"
	s.Insert(updated)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "g1", all[0].ID)
	assert.Equal(t, "renamed", all[0].ClientName)
}

func TestByStatusStableInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Load([]models.AppointmentGroup{
		group("g1", models.StatusArrived),
		group("g2", models.StatusScheduled),
		group("g3", models.StatusArrived),
	})
	s.Insert(group("g4", models.StatusArrived))

	arrived := s.ByStatus(models.StatusArrived)
	require.Len(t, arrived, 3)
	assert.Equal(t, "g1", arrived[0].ID)
	assert.Equal(t, "g3", arrived[1].ID)
	assert.Equal(t, "g4", arrived[2].ID)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Load([]models.AppointmentGroup{group("g1", models.StatusScheduled)})

	g, _ := s.Get("g1")
	g.Status = models.StatusCompleted

	fresh, _ := s.Get("g1")
	assert.Equal(t, models.StatusScheduled, fresh.Status)
}
