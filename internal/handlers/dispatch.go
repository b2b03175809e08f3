// internal/handlers/dispatch.go
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/game"
	"github.com/jason-s-yu/songquiz/internal/lobby"
	"github.com/sirupsen/logrus"
)

const selectTimeout = 10 * time.Second

type lobbyIDData struct {
	LobbyID string `json:"lobby_id"`
}

type readyData struct {
	Ready bool `json:"ready"`
}

type changeRulesData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

type kickData struct {
	PlayerName string `json:"player_name"`
}

type gameModeData struct {
	GameMode string `json:"gameMode"`
}

type guessData struct {
	Guess string `json:"guess"`
}

type selectedSongData struct {
	SongID    string `json:"song_id"`
	SongStart *int   `json:"song_start"`
}

// opClass maps lobby events onto their busy guard class.
var opClass = map[string]lobby.OpClass{
	"createLobby": lobby.OpLobby,
	"joinLobby":   lobby.OpLobby,
	"leaveLobby":  lobby.OpLobby,
	"ready":       lobby.OpLobby,
	"changeRules": lobby.OpLobby,
	"setGameMode": lobby.OpLobby,
	"setInactive": lobby.OpLobby,
	"kickPlayer":  lobby.OpKick,
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return codes.DataNotValid
	}
	return nil
}

// dispatch routes one frame. Lobby events run single-flight per class off the
// read loop; guesses are answered inline.
func dispatch(ctx context.Context, client *lobby.Client, conn *wsConn, in inbound, logger *logrus.Entry) {
	if class, ok := opClass[in.Event]; ok {
		release, err := client.Acquire(class)
		if err != nil {
			conn.ack(in.ID, errorReply(codes.Of(err)))
			return
		}
		go func() {
			res := handleLobbyEvent(client, in, logger)
			// released before the ack so a client waiting on it is never told busy
			release()
			conn.ack(in.ID, res)
		}()
		return
	}

	switch in.Event {
	case "songGuess", "artistGuess":
		kind := game.GuessSong
		if in.Event == "artistGuess" {
			kind = game.GuessArtist
		}
		var d guessData
		if err := decode(in.Data, &d); err != nil {
			conn.ack(in.ID, errorReply(codes.DataNotValid))
			return
		}
		res, err := client.Guess(kind, d.Guess)
		if err != nil {
			conn.ack(in.ID, replyFor(err, logger))
			return
		}
		conn.ack(in.ID, res)

	case "selectedSong":
		var d selectedSongData
		if err := decode(in.Data, &d); err != nil {
			conn.ack(in.ID, errorReply(codes.DataNotValid))
			return
		}
		go func() {
			selectCtx, cancel := context.WithTimeout(ctx, selectTimeout)
			defer cancel()
			conn.ack(in.ID, replyFor(client.SelectSong(selectCtx, d.SongID, d.SongStart), logger))
		}()

	case "lobbyExists":
		var d lobbyIDData
		if err := decode(in.Data, &d); err != nil {
			conn.ack(in.ID, errorReply(codes.DataNotValid))
			return
		}
		conn.ack(in.ID, reply{"exists": client.LobbyExists(d.LobbyID)})

	case "getGameModes":
		conn.ack(in.ID, reply{"gameModes": client.GameModes()})

	default:
		conn.ack(in.ID, errorReply(codes.UnknownEvent))
	}
}

func handleLobbyEvent(client *lobby.Client, in inbound, logger *logrus.Entry) reply {
	switch in.Event {
	case "createLobby":
		id, err := client.CreateLobby()
		if err != nil {
			return replyFor(err, logger)
		}
		return reply{"success": true, "lobby_id": id}

	case "joinLobby":
		var d lobbyIDData
		if err := decode(in.Data, &d); err != nil {
			return errorReply(codes.DataNotValid)
		}
		return replyFor(client.JoinLobby(d.LobbyID), logger)

	case "leaveLobby":
		return replyFor(client.LeaveLobby(), logger)

	case "ready":
		var d readyData
		if err := decode(in.Data, &d); err != nil {
			return errorReply(codes.DataNotValid)
		}
		err := client.SetReady(d.Ready)
		switch code := codes.Of(err); code {
		case "", codes.NotLoggedIn, codes.NotInLobby, codes.PlayerNotFound, codes.Unknown:
			return replyFor(err, logger)
		default:
			return statusReply(code)
		}

	case "changeRules":
		var d changeRulesData
		if err := decode(in.Data, &d); err != nil {
			return errorReply(codes.DataNotValid)
		}
		return readinessReply(client.ChangeRules(d.Key, d.Value), logger)

	case "setGameMode":
		var d gameModeData
		if err := decode(in.Data, &d); err != nil {
			return errorReply(codes.DataNotValid)
		}
		return readinessReply(client.SetGameMode(d.GameMode), logger)

	case "setInactive":
		return replyFor(client.SetInactive(), logger)

	case "kickPlayer":
		var d kickData
		if err := decode(in.Data, &d); err != nil {
			return errorReply(codes.DataNotValid)
		}
		return replyFor(client.Kick(d.PlayerName), logger)
	}
	return errorReply(codes.UnknownEvent)
}

// readinessReply treats a lost ready flag as success with a not_ready status.
func readinessReply(err error, logger *logrus.Entry) reply {
	if codes.Is(err, codes.NotReady) {
		return statusReply(codes.NotReady)
	}
	return replyFor(err, logger)
}
