package jellyfin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"jellybridge/internal/log"
)

// CommandType classifies a remote control command from the server.
type CommandType string

const (
	CommandPlay          CommandType = "Play"
	CommandPlayPause     CommandType = "PlayPause"
	CommandPause         CommandType = "Pause"
	CommandUnpause       CommandType = "Unpause"
	CommandStop          CommandType = "Stop"
	CommandSeek          CommandType = "Seek"
	CommandNextTrack     CommandType = "NextTrack"
	CommandPreviousTrack CommandType = "PreviousTrack"
)

// RemoteCommand is one remote control command received over the session
// websocket. Play commands carry their raw intent payload for the player
// to parse.
type RemoteCommand struct {
	Type              CommandType
	Data              json.RawMessage
	SeekPositionTicks int64
}

type socketMessage struct {
	MessageType string          `json:"MessageType"`
	Data        json.RawMessage `json:"Data"`
}

type playstateData struct {
	Command           string `json:"Command"`
	SeekPositionTicks int64  `json:"SeekPositionTicks"`
}

// Socket is the session websocket connection to the server. It receives the
// remote control commands other clients (the web app in particular) address
// to this device.
type Socket struct {
	api *Client
	log zerolog.Logger
}

func NewSocket(api *Client) *Socket {
	return &Socket{
		api: api,
		log: log.WithComponent("socket"),
	}
}

// Subscribe opens the command channel. The connection is retried with
// exponential backoff until the context is canceled; the channel closes when
// the loop exits.
func (s *Socket) Subscribe(ctx context.Context) <-chan RemoteCommand {
	ch := make(chan RemoteCommand, 16)
	go s.wsLoop(ctx, ch)
	return ch
}

func (s *Socket) wsLoop(ctx context.Context, ch chan<- RemoteCommand) {
	defer close(ch)
	backoff := time.Second

	for {
		err := s.wsConnect(ctx, ch)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("session websocket disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff = min(backoff*2, 30*time.Second)
		}
	}
}

func (s *Socket) wsConnect(ctx context.Context, ch chan<- RemoteCommand) error {
	// Advertise remote control support so the server routes commands here.
	if err := s.api.ReportCapabilities(ctx); err != nil {
		return err
	}

	wsURL := strings.Replace(s.api.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/socket?api_key=" + s.api.token + "&deviceId=" + s.api.deviceID

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return err
	}
	defer conn.Close()

	// Ping goroutine
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(
					websocket.PingMessage, nil,
					time.Now().Add(5*time.Second),
				); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		command, keepAlive, ok := parseSocketMessage(msg)
		if keepAlive {
			// The server expects a KeepAlive echo for ForceKeepAlive.
			if err := conn.WriteJSON(socketMessage{MessageType: "KeepAlive"}); err != nil {
				return err
			}
			continue
		}
		if !ok {
			continue
		}
		select {
		case ch <- command:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parseSocketMessage extracts a remote command from one websocket frame.
// Unknown message types and malformed payloads are ignored.
func parseSocketMessage(data []byte) (command RemoteCommand, keepAlive, ok bool) {
	var msg socketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return RemoteCommand{}, false, false
	}
	switch msg.MessageType {
	case "ForceKeepAlive":
		return RemoteCommand{}, true, false
	case "Play":
		return RemoteCommand{Type: CommandPlay, Data: msg.Data}, false, true
	case "Playstate":
		var state playstateData
		if err := json.Unmarshal(msg.Data, &state); err != nil {
			return RemoteCommand{}, false, false
		}
		switch CommandType(state.Command) {
		case CommandPlayPause, CommandPause, CommandUnpause, CommandStop,
			CommandNextTrack, CommandPreviousTrack:
			return RemoteCommand{Type: CommandType(state.Command)}, false, true
		case CommandSeek:
			return RemoteCommand{Type: CommandSeek, SeekPositionTicks: state.SeekPositionTicks}, false, true
		}
	}
	return RemoteCommand{}, false, false
}
