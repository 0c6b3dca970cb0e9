package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/caretable/pkg/registry"
	"github.com/marshallshelly/caretable/pkg/schema"
	"github.com/marshallshelly/caretable/pkg/store"
)

// Test schema: a small sports league exercising every relationship kind.
// League rows restrict their teams, teams cascade into players, coaches
// null out of players, and sponsors link to teams through a
// pair-identified junction.

type League struct {
	ID   int64  `db:"id,primary"`
	Name string `db:"name,unique,notNull"`
}

type Team struct {
	ID       int64  `db:"id,primary"`
	Name     string `db:"name,unique,notNull"`
	LeagueID int64  `db:"league_id,fk:leagues.id,ondelete:restrict"`
}

type Coach struct {
	ID    int64   `db:"id,primary"`
	Name  string  `db:"name,notNull"`
	Email *string `db:"email,unique"`
}

type Player struct {
	ID      int64  `db:"id,primary"`
	Name    string `db:"name,notNull,index(idx_players_name)"`
	Number  int64  `db:"number,min(0)"`
	Role    string `db:"role,enum(Guard|Forward|Center)"`
	TeamID  int64  `db:"team_id,fk:teams.id,ondelete:cascade"`
	CoachID *int64 `db:"coach_id,fk:coaches.id,ondelete:setnull"`
}

// Award restricts deletion of its player, which in turn blocks any cascade
// that would reach the player.
type Award struct {
	ID       int64  `db:"id,primary"`
	Title    string `db:"title,notNull"`
	PlayerID int64  `db:"player_id,fk:players.id,ondelete:restrict"`
}

type Sponsor struct {
	ID   int64  `db:"id,primary"`
	Name string `db:"name,unique,notNull"`
}

type TeamSponsor struct {
	TeamID    int64 `db:"team_id,fk:teams.id,ondelete:cascade"`
	SponsorID int64 `db:"sponsor_id,fk:sponsors.id,ondelete:cascade"`
}

func (TeamSponsor) UniqueKeys() []schema.UniqueKey {
	return []schema.UniqueKey{{Name: "uq_team_sponsors_pair", Columns: []string{"team_id", "sponsor_id"}}}
}

// Event carries the composite index the range-scan tests walk.
type Event struct {
	ID     int64     `db:"id,primary"`
	RoomID int64     `db:"room_id"`
	Start  time.Time `db:"start"`
	Label  string    `db:"label"`
}

func (Event) CompositeIndexes() []schema.Index {
	return []schema.Index{{Name: "idx_events_room_start", Columns: []string{"room_id", "start"}}}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	reg := registry.NewRegistry()
	for _, m := range []any{League{}, Team{}, Coach{}, Player{}, Award{}, Sponsor{}, TeamSponsor{}, Event{}} {
		require.NoError(t, reg.Register(m))
	}
	s, err := store.New(reg)
	require.NoError(t, err)
	return s
}

// seedLeague inserts a league with one team and two players and returns
// the ids.
func seedLeague(t *testing.T, s *store.Store) (leagueID, teamID, p1, p2 int64) {
	t.Helper()
	var err error
	leagueID, err = s.Insert(League{Name: "Metro"})
	require.NoError(t, err)
	teamID, err = s.Insert(Team{Name: "Harbor Hawks", LeagueID: leagueID})
	require.NoError(t, err)
	p1, err = s.Insert(Player{Name: "Ana Silva", Number: 7, Role: "Guard", TeamID: teamID})
	require.NoError(t, err)
	p2, err = s.Insert(Player{Name: "Ben Okafor", Number: 23, Role: "Center", TeamID: teamID})
	require.NoError(t, err)
	return leagueID, teamID, p1, p2
}

func ptr[T any](v T) *T { return &v }
