package app

import (
	"context"
	"strings"

	"wallet_chat/internal/cryptographic/box"
	"wallet_chat/internal/cryptographic/signature"
	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/utils/log"

	"go.uber.org/zap"
)

type (
	// Line is a message ready for display.
	Line struct {
		ID            string
		From          string
		Text          string
		Mine          bool
		Undecryptable bool
		Timestamp     int64
	}

	// Chat is an open conversation with one peer.
	Chat struct {
		api     *API
		me      *Identity
		peer    string
		peerKey *[box.KeySize]byte
		cid     string
	}
)

// Login proves ownership of the wallet key, stores the credential on api
// and publishes the box public key.
func Login(ctx context.Context, api *API, me *Identity) (*model.Credential, error) {
	nonce, err := api.Nonce(ctx, me.Address)
	if err != nil {
		return nil, err
	}
	sig, err := signature.Sign(me.WalletKey, nonce)
	if err != nil {
		return nil, err
	}
	cred, err := api.Verify(ctx, me.Address, sig)
	if err != nil {
		return nil, err
	}
	api.SetToken(cred.Token)

	if err := api.RegisterPublicKey(ctx, me.Address, box.EncodeKey(me.Box.PublicKey)); err != nil {
		return nil, err
	}
	return cred, nil
}

// OpenChat fails with ErrPublicKeyNotFound when peer has not onboarded.
func OpenChat(ctx context.Context, api *API, me *Identity, peer string) (*Chat, error) {
	encoded, err := api.PublicKey(ctx, peer)
	if err != nil {
		return nil, err
	}
	peerKey, err := box.DecodeKey(encoded)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.CodeInvalidArgument, "peer public key is malformed", err)
	}

	return &Chat{
		api:     api,
		me:      me,
		peer:    peer,
		peerKey: peerKey,
		cid:     model.ConversationID(me.Address, peer),
	}, nil
}

func (c *Chat) Peer() string {
	return c.peer
}

func (c *Chat) ConversationID() string {
	return c.cid
}

// Belongs reports whether m is part of this conversation.
func (c *Chat) Belongs(m *model.Message) bool {
	return strings.EqualFold(m.ConversationID, c.cid)
}

// History loads and decrypts the whole conversation. A message that fails
// to decrypt is kept as an undecryptable line.
func (c *Chat) History(ctx context.Context) ([]*Line, error) {
	msgs, err := c.api.Conversation(ctx, c.cid, c.me.Address)
	if err != nil {
		return nil, err
	}

	lines := make([]*Line, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, c.Open(ctx, m))
	}
	return lines, nil
}

func (c *Chat) Send(ctx context.Context, text string) (*Line, error) {
	ciphertext, err := box.Encrypt(&c.me.Box.SecretKey, c.peerKey, []byte(text))
	if err != nil {
		return nil, err
	}
	ref, err := c.api.Upload(ctx, ciphertext)
	if err != nil {
		return nil, err
	}

	m, err := c.api.Send(ctx, c.me.Address, c.peer, ciphertext, ref)
	if err != nil {
		return nil, err
	}
	return &Line{
		ID:        m.ID,
		From:      m.From,
		Text:      text,
		Mine:      true,
		Timestamp: m.Timestamp,
	}, nil
}

// Open decrypts m. Both directions use the same key pair, so the sender can
// read their own messages.
func (c *Chat) Open(ctx context.Context, m *model.Message) *Line {
	line := &Line{
		ID:        m.ID,
		From:      m.From,
		Mine:      strings.EqualFold(m.From, c.me.Address),
		Timestamp: m.Timestamp,
	}

	ciphertext := m.Content
	if ciphertext == "" && m.ContentRef != "" {
		fetched, err := c.api.Download(ctx, m.ContentRef)
		if err != nil {
			log.Warn("fetch message content failed", zap.String("id", m.ID), zap.Error(err))
		}
		ciphertext = fetched
	}

	plain, err := box.Decrypt(&c.me.Box.SecretKey, c.peerKey, ciphertext)
	if err != nil {
		log.Warn("message undecryptable", zap.String("id", m.ID), zap.Error(err))
		line.Undecryptable = true
		return line
	}
	line.Text = string(plain)
	return line
}

func (c *Chat) MarkRead(ctx context.Context) error {
	return c.api.MarkRead(ctx, c.cid, c.me.Address)
}
