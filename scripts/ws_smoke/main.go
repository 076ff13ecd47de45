package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/chatroom-server/internal/proto"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	} `json:"user"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:3000", "server base URL")
	username := flag.String("user", "smoketester", "username to log in with")
	password := flag.String("password", "smoke-password", "password")
	register := flag.Bool("register", false, "create the account before logging in")
	chat := flag.String("chat", "smoke", "chat id to send into")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *register {
		if _, err := postJSON(ctx, *base+"/api/v1/user/new", map[string]string{
			"name": *username, "username": *username, "password": *password,
		}); err != nil {
			return fmt.Errorf("register: %w", err)
		}
	}

	session, err := postJSON(ctx, *base+"/api/v1/user/login", map[string]string{
		"username": *username, "password": *password,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + session.Token}},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	members := []string{session.User.ID}
	if err := send(ctx, conn, proto.InboundTypeChatJoined, proto.PresenceData{UserID: session.User.ID, Members: members}); err != nil {
		return err
	}
	if err := send(ctx, conn, proto.InboundTypeNewMessage, proto.NewMessageData{ChatID: *chat, Members: members, Content: *text}); err != nil {
		return err
	}

	want := map[string]bool{proto.EventOnlineUsers: false, proto.EventNewMessage: false, proto.EventNewMessageAlert: false}
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received outbound: type=%s event=%s data=%s\n", outbound.Type, outbound.Event, outbound.Data)

		if _, ok := want[outbound.Event]; ok {
			want[outbound.Event] = true
		}
		done := true
		for _, seen := range want {
			done = done && seen
		}
		if done {
			return nil
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func postJSON(ctx context.Context, url string, body any) (*authResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
