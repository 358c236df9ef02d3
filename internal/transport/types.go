// Package transport holds the chat-platform neutral types shared by the
// Telegram adapter, the router and the event views.
package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

// Update is one inbound event; exactly one of Message or Callback is set.
type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

// Message is an inbound text message (commands such as /events).
type Message struct {
	ID       int
	ChatID   int64
	ThreadID int // forum topic; 0 if none
	FromID   int64
	Text     string
}

// Target is the chat the reply goes to.
func (m *Message) Target() ChatTarget { return ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID} }

// Callback is an inline-button press on a message this bot sent.
type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	ThreadID  int
	MessageID int
	Data      string
}

func (c *Callback) Target() ChatTarget { return ChatTarget{ChatID: c.ChatID, ThreadID: c.ThreadID} }

// Ref points at the message carrying the pressed button.
func (c *Callback) Ref() MessageRef {
	return MessageRef{ChatID: c.ChatID, ThreadID: c.ThreadID, MessageID: c.MessageID}
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

// At returns a reference to message id within this chat.
func (t ChatTarget) At(id int) MessageRef {
	return MessageRef{ChatID: t.ChatID, ThreadID: t.ThreadID, MessageID: id}
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

func (r MessageRef) Chat() ChatTarget { return ChatTarget{ChatID: r.ChatID, ThreadID: r.ThreadID} }

// SendOptions carries rendering hints. ReplyMarkupAdapter is adapter
// specific; the Telegram adapter expects *telebot.ReplyMarkup.
type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	ReplyMarkupAdapter any
}

// Adapter is a chat platform connection. Start pushes updates into out
// until ctx ends or Stop is called.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// BotCommand is one entry of the platform command menu.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a command
// menu (Telegram setMyCommands).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
