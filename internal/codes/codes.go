// internal/codes/codes.go
package codes

import "errors"

// Code is a symbolic outcome returned to clients through the reply path.
// It satisfies error so room and session code can return it directly.
type Code string

func (c Code) Error() string {
	return string(c)
}

// Session preconditions.
const (
	NotLoggedIn            Code = "not_logged_in"
	AlreadyLoggedIn        Code = "already_logged_in"
	TmpUserCanNotCreate    Code = "tmp_user_can_not_create_lobby"
	Busy                   Code = "busy"
	DataNotValid           Code = "data_not_valid"
	UnknownEvent           Code = "unknown_event"
	Unknown                Code = "unknown_error"
	OwnerIsNotAParticipant Code = "owner_is_not_a_participant"
)

// Room membership.
const (
	LobbyNotFound         Code = "lobby_not_found"
	LobbyIsFull           Code = "lobby_is_full"
	PlayerAlreadyInLobby  Code = "player_already_in_lobby"
	PlayerNotFound        Code = "player_not_found"
	NotInLobby            Code = "not_in_lobby"
	AlreadyInLobby        Code = "already_in_lobby"
	ErrorRemovingPlayer   Code = "error_while_removing_player"
	ChangingRulesNotOwner Code = "changing_rules_only_allowed_for_owner"
	KickingNotOwner       Code = "kicking_only_allowed_for_owner"
	GameModeNotOwner      Code = "changing_gamemode_only_allowed_for_owner"
	OwnerCantKickHimself  Code = "owner_cant_kick_himself"
)

// Game flow.
const (
	NotEnoughPlayers       Code = "not_enough_players"
	NoGameModeSet          Code = "no_gamemode_set"
	GameAlreadyRunning     Code = "game_already_running"
	CantChangeGameMode     Code = "cant_change_gamemode_while_game_is_running"
	GameModeNotAvailable   Code = "gamemode_not_available"
	GameAlreadyStarted     Code = "game_already_started"
	CantStartWithTempUsers Code = "can't_start_with_temp_users"
	NoGameRunning          Code = "no_game_running"
	NotReady               Code = "not_ready"
	SongAlreadySelected    Code = "song_already_selected"
	NotYourTurn            Code = "not_your_turn"
	NoSong                 Code = "no_song"
	NoSongStart            Code = "no_song_start"
	SongStartTooSmall      Code = "song_start_too_small"
	SongStartTooBig        Code = "song_start_too_big"
	SongNotFound           Code = "song_not_found"
	SelectedSongCantGuess  Code = "you_selected_song_you_cant_guess"
	AlreadyGuessed         Code = "already_guessed"
	AlreadyGotArtist       Code = "already_got_artist"
	InbetweenRounds        Code = "inbetween_rounds"
	NoGuess                Code = "no_guess"
	GuessTooLong           Code = "guess_too_long"
	DoNotSpam              Code = "do_not_spam"
)

// Rule mutation.
const (
	RuleNotFound            Code = "rule_not_found"
	DontSpam                Code = "dont_spam"
	NotANumber              Code = "not_a_number"
	ValueTooLow             Code = "value_too_low"
	NotAString              Code = "not_a_string"
	UnknownType             Code = "unknown_type"
	MetadataKey             Code = "verry_funny"
	DecreaseMinPlayersFirst Code = "decrease_min_players_first"
	BeReasonable            Code = "be_reasonable"
	IncreaseMaxPlayersFirst Code = "increase_max_players_first"
	Minimum2Players         Code = "minimum_2_players"
)

// Of maps err onto the wire. Codes pass through, even when wrapped;
// anything else becomes Unknown so internals never leak to clients.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Unknown
}

// Is reports whether err carries the given code.
func Is(err error, c Code) bool {
	return Of(err) == c
}
