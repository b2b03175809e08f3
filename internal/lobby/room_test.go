package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/game"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/jason-s-yu/songquiz/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSendsInitialState(t *testing.T) {
	env := setupTestEnv(t)
	owner := newTestUser("owner")

	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	assert.Len(t, r.ID, idLength)
	assert.True(t, env.store.Exists(r.ID))

	view, ok := r.Owner()
	require.True(t, ok)
	assert.Equal(t, "owner", view.Username)
	assert.Equal(t, models.RoleOwner, view.Role)

	assert.NotEmpty(t, owner.ep.lobbyInfos(game.InfoRules))
	assert.NotEmpty(t, owner.ep.lobbyInfos(game.InfoPlayerList))
	modes := owner.ep.lobbyInfos(game.InfoGameMode)
	require.NotEmpty(t, modes)
	assert.Equal(t, game.Classic.Name, modes[len(modes)-1].Data.(game.ModeInfo).Name)

	_, err = env.store.Create(nil, nil)
	assert.Equal(t, codes.OwnerIsNotAParticipant, codes.Of(err))
}

func TestReadyGatingAutoStartsGame(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)

	assert.Equal(t, codes.NotEnoughPlayers, codes.Of(r.StartGame()))

	require.NoError(t, r.Join(guest.User, guest.ep))
	require.NoError(t, r.SetReady(owner.ID, true))
	assert.False(t, r.GameRunning())

	require.NoError(t, r.SetReady(guest.ID, true))
	assert.True(t, r.GameRunning())
	assert.NotNil(t, r.Session())
	assert.Len(t, owner.ep.lobbyInfos(game.InfoGameStart), 1)
	assert.Len(t, guest.ep.lobbyInfos(game.InfoGameStart), 1)
	assert.Equal(t, game.StateSelecting, sessionState(r))

	assert.Equal(t, codes.GameAlreadyRunning, codes.Of(r.StartGame()))
	assert.Equal(t, codes.GameAlreadyStarted, codes.Of(r.SetReady(owner.ID, true)))
}

func TestJoinRejections(t *testing.T) {
	env := setupTestEnv(t)
	owner := newTestUser("owner")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)

	for _, name := range []string{"b", "c", "d"} {
		u := newTestUser(name)
		require.NoError(t, r.Join(u.User, u.ep))
	}
	late := newTestUser("late")
	assert.Equal(t, codes.LobbyIsFull, codes.Of(r.Join(late.User, late.ep)))

	dup := models.NewPlayer(owner.User, owner.ep, env.clk)
	assert.Equal(t, codes.LobbyIsFull, codes.Of(r.AddPlayer(dup)))

	_, err = r.RemovePlayer(late.ID)
	assert.Equal(t, codes.PlayerNotFound, codes.Of(err))
}

func TestDuplicateParticipantRejected(t *testing.T) {
	env := setupTestEnv(t)
	owner := newTestUser("owner")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)

	dup := models.NewPlayer(owner.User, owner.ep, env.clk)
	assert.Equal(t, codes.PlayerAlreadyInLobby, codes.Of(r.AddPlayer(dup)))

	// a returning identity is rebound, not duplicated
	fresh := &mockEndpoint{}
	require.NoError(t, r.Join(owner.User, fresh))
	assert.Len(t, r.Players(), 1)
	assert.NotEmpty(t, fresh.lobbyInfos(game.InfoRules))
}

func TestOwnerLeavingHandsOverToFirstActive(t *testing.T) {
	env := setupTestEnv(t)
	a, b, c := newTestUser("a"), newTestUser("b"), newTestUser("c")
	r, err := env.store.Create(a.User, a.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(b.User, b.ep))
	require.NoError(t, r.Join(c.User, c.ep))

	retained, err := r.RemovePlayer(a.ID)
	require.NoError(t, err)
	assert.False(t, retained)

	view, ok := r.Owner()
	require.True(t, ok)
	assert.Equal(t, "b", view.Username)
	assert.Equal(t, models.RoleOwner, view.Role)
	assert.False(t, r.Has(a.ID))

	_, err = r.RemovePlayer(b.ID)
	require.NoError(t, err)
	view, _ = r.Owner()
	assert.Equal(t, "c", view.Username)
}

func TestOwnerLeavingWithOnlyInactiveLeavesRoomOwnerless(t *testing.T) {
	env := setupTestEnv(t)
	a, b, c := newTestUser("a"), newTestUser("b"), newTestUser("c")
	r, err := env.store.Create(a.User, a.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(b.User, b.ep))
	require.NoError(t, r.Join(c.User, c.ep))
	for _, u := range []testUser{a, b, c} {
		require.NoError(t, r.SetReady(u.ID, true))
	}
	require.True(t, r.GameRunning())

	_, err = r.SetInactive(b.ID)
	require.NoError(t, err)
	_, err = r.SetInactive(c.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatePaused, sessionState(r))

	retained, err := r.RemovePlayer(a.ID)
	require.NoError(t, err)
	assert.False(t, retained)
	_, ok := r.Owner()
	assert.False(t, ok, "no active participant can take over")
	assert.True(t, r.GameRunning())

	require.NoError(t, r.SetActive(b.ID))
	view, ok := r.Owner()
	require.True(t, ok)
	assert.Equal(t, "b", view.Username)
	assert.Equal(t, game.StatePaused, sessionState(r), "still below min_players")

	env.clk.Advance(DefaultRoomExpiry)
	assert.True(t, env.store.Exists(r.ID), "reactivation cancels the pending deletion")

	require.NoError(t, r.SetActive(c.ID))
	assert.NotEqual(t, game.StatePaused, sessionState(r))
}

func TestSoleOwnerLeavingKeepsRoomUntilExpiry(t *testing.T) {
	env := setupTestEnv(t)
	owner := newTestUser("owner")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)

	retained, err := r.RemovePlayer(owner.ID)
	require.NoError(t, err)
	assert.True(t, retained)
	assert.Equal(t, owner.ID, r.HeldFor())
	assert.Equal(t, 1, env.clk.Pending())

	env.clk.Advance(DefaultRoomExpiry - time.Second)
	assert.True(t, env.store.Exists(r.ID))

	env.clk.Advance(time.Second)
	assert.False(t, env.store.Exists(r.ID))
	assert.True(t, r.Deleted())
	assert.Equal(t, codes.LobbyNotFound, codes.Of(r.Join(owner.User, owner.ep)))
}

func TestJoinCancelsPendingDeletion(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	_, err = r.RemovePlayer(owner.ID)
	require.NoError(t, err)

	require.NoError(t, r.Join(guest.User, guest.ep))
	assert.Zero(t, env.clk.Pending())
	view, ok := r.Owner()
	require.True(t, ok)
	assert.Equal(t, "guest", view.Username)
	assert.Equal(t, uuid.Nil, r.HeldFor())

	env.clk.Advance(2 * DefaultRoomExpiry)
	assert.True(t, env.store.Exists(r.ID))

	r.DeleteIfHeldBy(owner.ID)
	assert.False(t, r.Deleted(), "the former owner gave up the claim")
}

func TestSetInactiveWithoutGameLeaves(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))

	_, err = r.SetInactive(guest.ID)
	require.NoError(t, err)
	assert.False(t, r.Has(guest.ID))
}

func TestKick(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest, other := newTestUser("owner"), newTestUser("guest"), newTestUser("other")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))
	require.NoError(t, r.Join(other.User, other.ep))

	assert.Equal(t, codes.KickingNotOwner, codes.Of(r.Kick(guest.ID, "other")))
	assert.Equal(t, codes.OwnerCantKickHimself, codes.Of(r.Kick(owner.ID, "owner")))
	assert.Equal(t, codes.PlayerNotFound, codes.Of(r.Kick(owner.ID, "nobody")))

	require.NoError(t, r.Kick(owner.ID, "guest"))
	assert.False(t, r.Has(guest.ID))
	kicked := guest.ep.lobbyInfos(game.InfoKicked)
	require.Len(t, kicked, 1)
	assert.Equal(t, "owner", kicked[0].Data.(game.Selecting).Username)
	assert.Empty(t, other.ep.lobbyInfos(game.InfoKicked))
}

func TestChangeRules(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))

	before := len(guest.ep.lobbyInfos(game.InfoRules))
	_, err = r.ChangeRules(guest.ID, rules.Rounds, 3)
	assert.Equal(t, codes.ChangingRulesNotOwner, codes.Of(err))
	assert.Len(t, guest.ep.lobbyInfos(game.InfoRules), before+1, "unchanged rules are resent to the requester")

	_, err = r.ChangeRules(owner.ID, "", 3)
	assert.Equal(t, codes.DataNotValid, codes.Of(err))
	_, err = r.ChangeRules(owner.ID, "nope", 3)
	assert.Equal(t, codes.RuleNotFound, codes.Of(err))

	require.NoError(t, r.SetReady(owner.ID, true))
	before = len(guest.ep.lobbyInfos(game.InfoRules))
	wasReady, err := r.ChangeRules(owner.ID, rules.Rounds, 3)
	require.NoError(t, err)
	assert.True(t, wasReady)
	assert.Len(t, guest.ep.lobbyInfos(game.InfoRules), before+1)

	r.Mu.Lock()
	assert.Equal(t, 3, r.rules.Int(rules.Rounds))
	r.Mu.Unlock()
	for _, v := range r.Players() {
		assert.False(t, v.IsReady)
	}
}

func TestSetGameMode(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))

	_, err = r.SetGameMode(guest.ID, game.OneRoom.Name)
	assert.Equal(t, codes.GameModeNotOwner, codes.Of(err))
	_, err = r.SetGameMode(owner.ID, "Battle")
	assert.Equal(t, codes.GameModeNotAvailable, codes.Of(err))

	_, err = r.SetGameMode(owner.ID, game.OneRoom.Name)
	require.NoError(t, err)
	modes := guest.ep.lobbyInfos(game.InfoGameMode)
	assert.Equal(t, game.OneRoom.Name, modes[len(modes)-1].Data.(game.ModeInfo).Name)

	require.NoError(t, r.StartGame())
	_, err = r.SetGameMode(owner.ID, game.Classic.Name)
	assert.Equal(t, codes.CantChangeGameMode, codes.Of(err))
}

func TestClassicRefusesGuests(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	guest.IsEphemeral = true
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))

	assert.Equal(t, codes.CantStartWithTempUsers, codes.Of(r.StartGame()))
	assert.False(t, r.GameRunning())
}

func TestGamePlaysToEndAndRecordsResults(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))
	_, err = r.ChangeRules(owner.ID, rules.Rounds, 1)
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	start := 0
	window := 64 * time.Second // guessing_time + offset + intermission
	for turn := 0; turn < 2; turn++ {
		id := activeID(r)
		require.NotEqual(t, uuid.Nil, id, "turn %d", turn)
		require.NoError(t, r.SelectSong(context.Background(), id, testTrack.ID, &start))
		env.clk.Advance(window)
	}

	assert.False(t, r.GameRunning())
	assert.Nil(t, r.Session())
	for _, u := range []testUser{owner, guest} {
		assert.Equal(t, 1, u.ep.count(game.EventGameEnd))
		assert.Equal(t, 2, u.ep.count(game.EventTurnEnd))
	}
	for _, v := range r.Players() {
		assert.Zero(t, v.Points)
		assert.False(t, v.IsReady)
	}
	assert.Eventually(t, func() bool { return env.results.len() == 2 }, time.Second, 10*time.Millisecond)

	_, err = r.Guess(game.GuessSong, guest.ID, "africa")
	assert.Equal(t, codes.NoGameRunning, codes.Of(err))
}

func TestSecondGameStartsAtRoundOne(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))
	_, err = r.ChangeRules(owner.ID, rules.Rounds, 1)
	require.NoError(t, err)

	start := 0
	for g := 1; g <= 2; g++ {
		require.NoError(t, r.StartGame(), "game %d", g)
		r.Mu.Lock()
		round := r.session.Round()
		r.Mu.Unlock()
		assert.Equal(t, 1, round, "game %d", g)
		assert.Equal(t, game.StateSelecting, sessionState(r), "game %d", g)

		for turn := 0; turn < 2; turn++ {
			id := activeID(r)
			require.NotEqual(t, uuid.Nil, id, "game %d turn %d", g, turn)
			require.NoError(t, r.SelectSong(context.Background(), id, testTrack.ID, &start))
			env.clk.Advance(64 * time.Second)
		}
		assert.False(t, r.GameRunning(), "game %d", g)
		assert.Equal(t, g, owner.ep.count(game.EventGameEnd))
		assert.Equal(t, 2*g, guest.ep.count(game.EventTurnEnd))
	}
}

func TestDeleteStopsRunningGame(t *testing.T) {
	env := setupTestEnv(t)
	owner, guest := newTestUser("owner"), newTestUser("guest")
	r, err := env.store.Create(owner.User, owner.ep)
	require.NoError(t, err)
	require.NoError(t, r.Join(guest.User, guest.ep))
	require.NoError(t, r.StartGame())
	s := r.Session()

	r.Delete()
	assert.False(t, env.store.Exists(r.ID))
	assert.False(t, r.GameRunning())
	r.Mu.Lock()
	assert.Equal(t, game.StateEnded, s.State())
	r.Mu.Unlock()
	assert.Zero(t, env.clk.Pending())
}
