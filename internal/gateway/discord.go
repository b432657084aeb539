package gateway

import (
	"context"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const discordLimit = 2000

type DiscordGateway struct {
	Session *discordgo.Session
	Handler Handler

	mu   sync.Mutex
	done chan struct{}
}

func NewDiscordGateway(token string, handler Handler) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	dg := &DiscordGateway{
		Session: session,
		Handler: handler,
		done:    make(chan struct{}),
	}
	session.AddHandler(dg.onMessage)
	return dg, nil
}

// Start opens the websocket and blocks until Stop is called.
func (dg *DiscordGateway) Start() error {
	if err := dg.Session.Open(); err != nil {
		return err
	}
	if dg.Session.State != nil && dg.Session.State.User != nil {
		log.Printf("Authorized on account %s", dg.Session.State.User.Username)
	}
	<-dg.done
	return nil
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	log.Printf("[%s] %s", m.Author.Username, m.Content)

	response, err := dg.Handler.Handle(context.Background(), m.ChannelID, m.Content)
	if err != nil {
		log.Printf("Error handling message: %v", err)
		response = troubleReply
	}
	if response == "" {
		return
	}
	if err := dg.Send(m.ChannelID, response); err != nil {
		log.Printf("Error replying to %s: %v", m.ChannelID, err)
	}
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	for _, part := range chunk(text, discordLimit) {
		if _, err := dg.Session.ChannelMessageSend(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (dg *DiscordGateway) Stop() error {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	select {
	case <-dg.done:
		return nil
	default:
		close(dg.done)
	}
	return dg.Session.Close()
}
