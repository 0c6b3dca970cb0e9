package store_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/caretable/pkg/runtime"
)

func TestDomainConstraint(t *testing.T) {
	s := newTestStore(t)
	_, teamID, _, _ := seedLeague(t, s)

	_, err := s.Insert(Player{Name: "Cleo Park", Number: 4, Role: "Goalie", TeamID: teamID})
	require.Error(t, err)

	var domain *runtime.DomainViolation
	require.ErrorAs(t, err, &domain)
	assert.Equal(t, "role", domain.Field)
	assert.Equal(t, "Goalie", domain.Value)
	assert.Equal(t, []string{"Guard", "Forward", "Center"}, domain.Allowed)
}

func TestRangeConstraint(t *testing.T) {
	s := newTestStore(t)
	_, teamID, _, _ := seedLeague(t, s)

	before, err := s.Count("players")
	require.NoError(t, err)

	_, err = s.Insert(Player{Name: "Cleo Park", Number: -1, Role: "Guard", TeamID: teamID})
	require.Error(t, err)

	var rng *runtime.RangeViolation
	require.ErrorAs(t, err, &rng)
	assert.Equal(t, "number", rng.Field)
	assert.Equal(t, int64(-1), rng.Value)
	assert.Equal(t, ">= 0", rng.Constraint)

	after, err := s.Count("players")
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected insert must not change the table")
}

func TestUniquenessConstraint(t *testing.T) {
	t.Run("single field collision", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Insert(League{Name: "Metro"})
		require.NoError(t, err)

		_, err = s.Insert(League{Name: "Metro"})
		var uniq *runtime.UniquenessViolation
		require.ErrorAs(t, err, &uniq)
		assert.Equal(t, []string{"name"}, uniq.Fields)
	})

	t.Run("absent optional values never collide", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Insert(Coach{Name: "Dana Reyes"})
		require.NoError(t, err)
		_, err = s.Insert(Coach{Name: "Eli Burke"})
		require.NoError(t, err)

		_, err = s.Insert(Coach{Name: "Fay Lund", Email: ptr("f.lund@example.com")})
		require.NoError(t, err)
		_, err = s.Insert(Coach{Name: "Gus Marsh", Email: ptr("f.lund@example.com")})
		var uniq *runtime.UniquenessViolation
		require.ErrorAs(t, err, &uniq)
	})

	t.Run("empty required strings collide", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Insert(League{Name: ""})
		require.NoError(t, err)

		_, err = s.Insert(League{Name: ""})
		var uniq *runtime.UniquenessViolation
		require.ErrorAs(t, err, &uniq)
		assert.Equal(t, []string{"name"}, uniq.Fields)
	})

	t.Run("empty optional strings never collide", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Insert(Coach{Name: "Dana Reyes", Email: ptr("")})
		require.NoError(t, err)
		_, err = s.Insert(Coach{Name: "Eli Burke", Email: ptr("")})
		require.NoError(t, err)
	})

	t.Run("composite key collision", func(t *testing.T) {
		s := newTestStore(t)
		_, teamID, _, _ := seedLeague(t, s)
		sponsorID, err := s.Insert(Sponsor{Name: "Northwind"})
		require.NoError(t, err)

		_, err = s.Insert(TeamSponsor{TeamID: teamID, SponsorID: sponsorID})
		require.NoError(t, err)
		_, err = s.Insert(TeamSponsor{TeamID: teamID, SponsorID: sponsorID})
		var uniq *runtime.UniquenessViolation
		require.ErrorAs(t, err, &uniq)
		assert.Equal(t, []string{"team_id", "sponsor_id"}, uniq.Fields)
	})
}

func TestReferentialConstraint(t *testing.T) {
	s := newTestStore(t)
	seedLeague(t, s)

	_, err := s.Insert(Player{Name: "Cleo Park", Number: 4, Role: "Guard", TeamID: 404})
	var ref *runtime.ReferenceViolation
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "team_id", ref.Field)
	assert.Equal(t, "teams", ref.Target)
	assert.Equal(t, int64(404), ref.TargetID)
}

func TestCheckOrder(t *testing.T) {
	// A row violating several constraints at once reports the first check
	// in the fixed order: domain before range before uniqueness before
	// referential.
	s := newTestStore(t)
	seedLeague(t, s)

	_, err := s.Insert(Player{Name: "Cleo Park", Number: -1, Role: "Goalie", TeamID: 404})
	require.Error(t, err)

	var domain *runtime.DomainViolation
	assert.ErrorAs(t, err, &domain, "domain check must win")

	_, err = s.Insert(Player{Name: "Cleo Park", Number: -1, Role: "Guard", TeamID: 404})
	var rng *runtime.RangeViolation
	assert.ErrorAs(t, err, &rng, "range check must precede referential")
}

func TestIsViolation(t *testing.T) {
	s := newTestStore(t)
	seedLeague(t, s)

	_, err := s.Insert(Player{Name: "Cleo Park", Number: 4, Role: "Guard", TeamID: 404})
	assert.True(t, runtime.IsViolation(err))

	_, err = s.Insert(struct{}{})
	assert.False(t, runtime.IsViolation(err))
	assert.False(t, runtime.IsViolation(errors.New("unrelated")))
}
