/*
Package chat contains the core logic for chat rooms: live participant
membership, message broadcasting, and the room registry.

This file defines the Room struct. A single mutex is the room's writer
section: join/rejoin/leave/post all run under it, so every broadcast
observes a consistent snapshot of the participant set and operations within
one room are totally ordered.
*/
package chat

import (
	"fmt"

	"sync"

	"github.com/rs/zerolog"

	"tlschat/internal/app/ai"
	"tlschat/internal/app/storage"
	"tlschat/internal/pkg/logx"
)

// outboundBuffer is the capacity of each participant's outbound channel.
const outboundBuffer = 256

// BotAuthor is the author name recorded and broadcast for AI replies.
const BotAuthor = "Bot"

// joinHint is delivered privately to every joining participant.
const joinHint = "To exit the room type /exit."

// Room owns one chat room's live participant set.
type Room struct {
	// Name is the unique room name.
	Name string

	// IsAI reports whether messages in this room are answered by the AI
	// responder.
	IsAI bool

	// responder is non-nil iff IsAI.
	responder *ai.Responder

	// mu is the room's single writer section, protecting participants and
	// serializing broadcast against membership changes.
	mu sync.Mutex

	// participants maps a username to that participant's outbound channel.
	participants map[string]chan<- string

	messages *storage.MessageStore

	logger zerolog.Logger
}

// NewRoom creates a Room. For AI rooms a responder is built from cfg and the
// room's prompt.
func NewRoom(name string, isAI bool, prompt string, messages *storage.MessageStore, cfg ai.Config) *Room {
	r := &Room{
		Name:         name,
		IsAI:         isAI,
		participants: make(map[string]chan<- string),
		messages:     messages,
		logger:       logx.Logger().With().Str("room", name).Logger(),
	}
	if isAI {
		r.responder = ai.NewResponder(cfg, prompt)
	}
	return r
}

// Prompt returns the AI prompt for AI rooms and the empty string otherwise.
func (r *Room) Prompt() string {
	if r.responder == nil {
		return ""
	}
	return r.responder.Prompt()
}

// Join registers the participant's outbound channel, sends the participant
// the leave hint, and announces the arrival. The announcement goes to every
// current participant including the joiner; clients rely on seeing their own
// join line.
func (r *Room) Join(username string, out chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants[username] = out
	r.deliver(username, out, joinHint)
	r.broadcast(fmt.Sprintf("[%s enters the room]", username), "")

	r.logger.Info().Str("username", username).Int("participants", len(r.participants)).Msg("Participant joined.")
}

// Rejoin is Join with a reconnect-flavored announcement, used when a token
// reconnect restores room membership.
func (r *Room) Rejoin(username string, out chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants[username] = out
	r.deliver(username, out, joinHint)
	r.broadcast(fmt.Sprintf("[%s reconnected to the room]", username), "")

	r.logger.Info().Str("username", username).Int("participants", len(r.participants)).Msg("Participant reconnected.")
}

// Leave removes the participant, announces the departure to everyone still
// present, and returns the announcement text. The departed participant is no
// longer in the map, so the caller must deliver the text on the departing
// connection itself.
func (r *Room) Leave(username string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.participants, username)
	announcement := fmt.Sprintf("[%s leaves the room]", username)
	r.broadcast(announcement, "")

	r.logger.Info().Str("username", username).Int("participants", len(r.participants)).Msg("Participant left.")
	return announcement
}

// PostMessage persists the message, broadcasts the formatted line to every
// other participant, and for AI rooms obtains and broadcasts the bot's reply
// to everyone including the sender. A persistence failure is surfaced to the
// caller so in-memory and durable state cannot silently diverge.
func (r *Room) PostMessage(username, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.messages.Append(r.Name, username, text); err != nil {
		return fmt.Errorf("persist message in %s: %w", r.Name, err)
	}

	formatted := username + ": " + text
	r.broadcast(formatted, username)

	if !r.IsAI {
		return nil
	}

	reply := r.responder.Respond(formatted)
	r.broadcast(BotAuthor+": "+reply, "")

	if err := r.messages.Append(r.Name, BotAuthor, reply); err != nil {
		return fmt.Errorf("persist bot reply in %s: %w", r.Name, err)
	}

	return nil
}

// broadcast delivers a line to every current participant except excludeUser.
// An empty excludeUser delivers to all. Callers must hold r.mu.
func (r *Room) broadcast(line, excludeUser string) {
	for username, out := range r.participants {
		if excludeUser != "" && username == excludeUser {
			continue
		}
		r.deliver(username, out, line)
	}
}

// deliver queues a line on one participant's outbound channel without
// blocking the writer section. A full channel means the connection's writer
// has stalled; the line is dropped and logged rather than stalling the room.
func (r *Room) deliver(username string, out chan<- string, line string) {
	select {
	case out <- line:
	default:
		r.logger.Warn().Str("username", username).Msg("Participant outbound channel full, dropping line.")
	}
}
