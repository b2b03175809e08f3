// internal/game/events.go
package game

import (
	"strings"

	"github.com/jason-s-yu/songquiz/internal/catalog"
	"github.com/jason-s-yu/songquiz/internal/models"
)

// Outbound event names.
const (
	EventLobbyInfo     = "lobbyInfo"
	EventYourTurn      = "yourTurn"
	EventIsSelecting   = "isSelecting"
	EventSelectedSong  = "selectedSong"
	EventTurnEnd       = "turnEnd"
	EventGameEnd       = "gameEnd"
	EventSongMessage   = "songMessage"
	EventArtistMessage = "artistMessage"
)

// lobbyInfo types.
const (
	InfoPlayerList = "playerList"
	InfoRules      = "rules"
	InfoGameMode   = "gamemode"
	InfoRound      = "round"
	InfoGameStart  = "gameStart"
	InfoKicked     = "kicked"
)

// Chat message info tags.
const (
	MessageGuessed        = "guessed"
	MessageClose          = "close"
	MessageAlreadyGuessed = "already_guessed"
)

const (
	noticePaused      = "Not enough players to continue. Game paused."
	noticeStillPaused = "Still not enough players to continue. Game paused."
	noticeResumed     = "Game resumed."
)

// LobbyInfo is the envelope for room-level updates.
type LobbyInfo struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type RoundNumber struct {
	Round int `json:"round"`
}

// Selecting names the participant choosing the next track.
type Selecting struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

// RoundInfo tells clients which track to play and when.
type RoundInfo struct {
	SongID        string `json:"song_id"`
	PlaybackStart int64  `json:"playback_start"`
	SongStart     int    `json:"song_start"`
}

// Reveal discloses the track at turn end.
type Reveal struct {
	SongID       string `json:"song_id"`
	SongName     string `json:"song_name"`
	ArtistsNames string `json:"artists_names"`
	AlbumCover   string `json:"album_cover"`
}

func revealOf(t *catalog.Track) Reveal {
	if t == nil {
		return Reveal{}
	}
	return Reveal{
		SongID:       t.ID,
		SongName:     t.Title,
		ArtistsNames: strings.Join(t.ArtistNames, ", "),
		AlbumCover:   t.CoverArtURL,
	}
}

// ChatMessage is a songMessage/artistMessage payload. System notices carry no sender.
type ChatMessage struct {
	Username *string `json:"username"`
	Nickname *string `json:"nickname"`
	Message  string  `json:"message"`
	Info     string  `json:"info,omitempty"`
}

func systemMessage(text, info string) ChatMessage {
	return ChatMessage{Message: text, Info: info}
}

func playerMessage(p *models.Player, text, info string) ChatMessage {
	username, nickname := p.Username, p.Nickname
	return ChatMessage{Username: &username, Nickname: &nickname, Message: text, Info: info}
}

// GuessReply answers a songGuess or artistGuess. The reveal fields are filled
// once the guesser has solved the whole track.
type GuessReply struct {
	Correct      bool     `json:"correct"`
	Close        bool     `json:"close"`
	Optimal      string   `json:"optimal,omitempty"`
	SongID       string   `json:"song_id,omitempty"`
	SongName     string   `json:"song_name,omitempty"`
	ArtistsNames []string `json:"artists_names,omitempty"`
	AlbumCover   string   `json:"album_cover,omitempty"`
}

// Standings is the gameEnd payload.
type Standings struct {
	Data Places `json:"data"`
}

type Places struct {
	Place1 *models.ScoreInfo `json:"place_1"`
	Place2 *models.ScoreInfo `json:"place_2"`
	Place3 *models.ScoreInfo `json:"place_3"`
}

// GuessKind tells songGuess and artistGuess apart.
type GuessKind string

const (
	GuessSong   GuessKind = "song"
	GuessArtist GuessKind = "artist"
)

func (k GuessKind) event() string {
	if k == GuessArtist {
		return EventArtistMessage
	}
	return EventSongMessage
}
