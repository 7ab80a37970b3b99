package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/user/packhub-back/internal/auth"
	"github.com/user/packhub-back/internal/models"
)

// DataProvider loads initial state for a user
type DataProvider interface {
	GetReadyState(ctx context.Context, userID uuid.UUID) (*models.ReadyEvent, error)
}

type Node struct {
	node         *centrifuge.Node
	tokenService *auth.TokenService
	dataProvider DataProvider
}

func NewNode(tokenService *auth.TokenService, dataProvider DataProvider) (*Node, error) {
	node, err := centrifuge.New(centrifuge.Config{
		LogLevel:   centrifuge.LogLevelInfo,
		LogHandler: func(e centrifuge.LogEntry) { log.Printf("[centrifuge] %s: %v", e.Message, e.Fields) },
	})
	if err != nil {
		return nil, err
	}

	n := &Node{
		node:         node,
		tokenService: tokenService,
		dataProvider: dataProvider,
	}

	// Auth via JWT in connect request
	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		token := e.Token
		if token == "" {
			return centrifuge.ConnectReply{}, centrifuge.DisconnectInvalidToken
		}

		claims, err := tokenService.ValidateAccessToken(token)
		if err != nil {
			return centrifuge.ConnectReply{}, centrifuge.DisconnectInvalidToken
		}

		return centrifuge.ConnectReply{
			Credentials: &centrifuge.Credentials{
				UserID: claims.UserID.String(),
			},
		}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		log.Printf("Client connected: %s (user: %s)", client.ID(), client.UserID())

		userID, err := uuid.Parse(client.UserID())
		if err != nil {
			return
		}

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			expectedChannel := "user:" + client.UserID()
			if e.Channel != expectedChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			// Load and send READY event with initial state
			readyState, err := n.dataProvider.GetReadyState(context.Background(), userID)
			if err != nil {
				log.Printf("Failed to get ready state for user %s: %v", userID, err)
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorInternal)
				return
			}

			// Send READY event after subscription
			go func() {
				time.Sleep(10 * time.Millisecond) // Small delay to ensure subscription is complete
				if err := n.PublishToUser(userID, "READY", readyState); err != nil {
					log.Printf("Failed to send READY to user %s: %v", userID, err)
				}
			}()

			cb(centrifuge.SubscribeReply{}, nil)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			log.Printf("Client disconnected: %s (reason: %s)", client.ID(), e.Reason)
		})
	})

	if err := node.Run(); err != nil {
		return nil, err
	}

	return n, nil
}

func (n *Node) Shutdown(ctx context.Context) error {
	return n.node.Shutdown(ctx)
}

func (n *Node) WebsocketHandler() http.Handler {
	wsHandler := centrifuge.NewWebsocketHandler(n.node, centrifuge.WebsocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	})
	return wsHandler
}

func (n *Node) PublishToUser(userID uuid.UUID, eventType string, data interface{}) error {
	channel := "user:" + userID.String()

	payload, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": data,
	})
	if err != nil {
		return err
	}

	_, err = n.node.Publish(channel, payload)
	return err
}

func (n *Node) PublishToUsers(userIDs []uuid.UUID, eventType string, data interface{}) {
	for _, userID := range userIDs {
		if err := n.PublishToUser(userID, eventType, data); err != nil {
			log.Printf("Failed to publish to user %s: %v", userID, err)
		}
	}
}
