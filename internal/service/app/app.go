package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/service/realtime"
	"wallet_chat/internal/utils/log"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const requestTimeout = 15 * time.Second

var ErrPeerNotOnboarded = errors.New("peer has not registered a public key yet")

type (
	App struct {
		app     *tview.Application
		chatbox *tview.TextView
		input   *tview.InputField

		api  *API
		me   *Identity
		chat *Chat

		mu   sync.Mutex
		seen map[string]struct{}

		// conn is opened in Run and closed in Stop
		conn *websocket.Conn
	}
)

func NewApp(api *API, me *Identity) *App {
	return &App{
		app:  tview.NewApplication(),
		api:  api,
		me:   me,
		seen: make(map[string]struct{}),
	}
}

// Run signs in, opens the conversation with peer and blocks in the UI loop.
func (c *App) Run(ctx context.Context, peer string) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if _, err := Login(reqCtx, c.api, c.me); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Info("signed in", zap.String("wallet", c.me.Address))

	chat, err := OpenChat(reqCtx, c.api, c.me, peer)
	if errors.Is(err, appErrors.ErrPublicKeyNotFound) {
		return fmt.Errorf("%s: %w", peer, ErrPeerNotOnboarded)
	}
	if err != nil {
		return fmt.Errorf("open chat: %w", err)
	}
	c.chat = chat

	// pushes that overlap the history load are dropped by markSeen
	c.conn, err = c.api.DialRealtime(ctx, c.me.Address)
	if err != nil {
		return err
	}

	history, err := chat.History(reqCtx)
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("load history: %w", err)
	}

	c.buildUI()
	for _, line := range history {
		c.markSeen(line.ID)
		fmt.Fprintln(c.chatbox, FormatLine(line))
	}
	c.markRead()

	go c.listenOnRealtime()

	if err := c.app.SetRoot(c.layout(), true).SetFocus(c.input).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func (c *App) Stop() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.app.Stop()
}

func (c *App) buildUI() {
	c.chatbox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	c.chatbox.SetBorder(true).SetTitle(fmt.Sprintf(" Chat with %s ", c.chat.Peer()))

	c.input = tview.NewInputField().
		SetLabel("Message: ").
		SetFieldWidth(0)
	c.input.SetBorder(true).SetTitle(" New Message (/pay, /session) ")

	c.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(c.input.GetText())
		if text == "" {
			return
		}
		c.input.SetText("")

		go c.handleInput(text)
	})
}

func (c *App) layout() tview.Primitive {
	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.chatbox, 0, 1, false).
		AddItem(c.input, 3, 0, true)
}

func (c *App) handleInput(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch text {
	case "/pay":
		expiry, err := c.api.PayHourly(ctx, c.me.Address, "")
		if err != nil {
			c.notice("[red]payment failed:[-] %s", err)
			return
		}
		c.notice("[blue]session extended until %s[-]", time.UnixMilli(expiry).Format(time.Kitchen))
	case "/session":
		status, err := c.api.Session(ctx, c.me.Address)
		if err != nil {
			c.notice("[red]session lookup failed:[-] %s", err)
			return
		}
		c.notice("[blue]session active: %t, %s left[-]", status.Active, time.Duration(status.RemainingMs)*time.Millisecond)
	default:
		line, err := c.chat.Send(ctx, text)
		if err != nil {
			c.notice("[red]send failed:[-] %s", err)
			return
		}
		if c.markSeen(line.ID) {
			c.writeLine(line)
		}
	}
}

func (c *App) listenOnRealtime() {
	for {
		var frame realtime.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			log.Debug("realtime connection closed", zap.Error(err))
			return
		}

		switch frame.Event {
		case realtime.EventMessage:
			var m model.Message
			if err := json.Unmarshal(frame.Payload, &m); err != nil {
				log.Error("Unmarshal message failed", zap.Error(err))
				continue
			}
			c.receive(&m)
		case realtime.EventError:
			c.notice("[red]server:[-] %s", frame.Error)
		}
	}
}

func (c *App) receive(m *model.Message) {
	if !c.chat.Belongs(m) || !c.markSeen(m.ID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	line := c.chat.Open(ctx, m)
	c.writeLine(line)
	if !line.Mine {
		c.markRead()
	}
}

// markSeen reports whether id was new. Sent messages come back over the
// realtime channel and must not be shown twice.
func (c *App) markSeen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = struct{}{}
	return true
}

func (c *App) markRead() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := c.chat.MarkRead(ctx); err != nil {
		log.Warn("mark read failed", zap.Error(err))
	}
}

func (c *App) writeLine(line *Line) {
	text := FormatLine(line)
	c.app.QueueUpdateDraw(func() {
		fmt.Fprintln(c.chatbox, text)
		c.chatbox.ScrollToEnd()
	})
}

func (c *App) notice(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.app.QueueUpdateDraw(func() {
		fmt.Fprintln(c.chatbox, text)
		c.chatbox.ScrollToEnd()
	})
}

// FormatLine renders a line with tview color tags.
func FormatLine(line *Line) string {
	who := fmt.Sprintf("[green]%s:[-]", line.From)
	if line.Mine {
		who = "[yellow]You:[-]"
	}
	if line.Undecryptable {
		return who + " [red]<undecryptable message>[-]"
	}
	return who + " " + tview.Escape(line.Text)
}
