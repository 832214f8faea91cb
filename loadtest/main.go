// Command loadtest replays synthetic Telegram updates against a running
// server. Point the server at a throwaway bot token and a stub LEETCODE_URL:
// replies to the fake chats will fail at Telegram, which is expected.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"streak-bot/internal/removal"
)

var (
	baseURL   = flag.String("base", "http://localhost:8080", "server base URL")
	secret    = flag.String("secret", "", "webhook secret (WEBHOOK_SECRET)")
	token     = flag.String("token", "", "operator JWT; enables feed watchers")
	chatCount = flag.Int("chats", 50, "number of synthetic chats")
	rounds    = flag.Int("rounds", 20, "command rounds per chat")
	users     = flag.String("users", "alice,bob,carol", "usernames to /add in every chat")
)

type stats struct {
	sent     atomic.Int64
	failed   atomic.Int64
	observed atomic.Int64
}

func main() {
	flag.Parse()
	log.Printf("🔥 STARTING LOAD TEST: %d chats, %d rounds each...", *chatCount, *rounds)

	var (
		wg    sync.WaitGroup
		st    stats
		start = time.Now()
	)
	for i := 0; i < *chatCount; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			runChat(chatID, &st)
		}(int64(-1000 - i))
	}
	wg.Wait()

	log.Printf("✅ LOAD TEST COMPLETE in %s: %d updates sent, %d failed, %d feed events observed",
		time.Since(start).Round(time.Millisecond), st.sent.Load(), st.failed.Load(), st.observed.Load())
}

func runChat(chatID int64, st *stats) {
	var watcher *websocket.Conn
	if *token != "" {
		watcher = watch(chatID, st)
		if watcher != nil {
			defer watcher.Close()
		}
	}

	var updateID int64
	next := func() int64 { updateID++; return chatID*-100000 + updateID }

	postUpdate(commandUpdate(next(), chatID, "/add "+strings.ReplaceAll(*users, ",", " ")), st)
	for i := 0; i < *rounds; i++ {
		cmd := "/leaderboard"
		if i%2 == 1 {
			cmd = "/list"
		}
		postUpdate(commandUpdate(next(), chatID, cmd), st)
		time.Sleep(10 * time.Millisecond)
	}
	postUpdate(commandUpdate(next(), chatID, "/remove"), st)
	postUpdate(callbackUpdate(next(), chatID, removal.EncodeCancel()), st)
}

// watch subscribes to the chat's registry feed and counts events until the
// connection closes.
func watch(chatID int64, st *stats) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(*baseURL, "http") + fmt.Sprintf("/ws?chat=%d&token=%s", chatID, *token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Printf("❌ WS Connect Fail [chat %d]: %v", chatID, err)
		return nil
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			st.observed.Add(1)
		}
	}()
	return conn
}

func commandUpdate(updateID, chatID int64, text string) map[string]interface{} {
	cmd := strings.SplitN(text, " ", 2)[0]
	return map[string]interface{}{
		"update_id": updateID,
		"message": map[string]interface{}{
			"message_id": updateID,
			"date":       time.Now().Unix(),
			"chat":       map[string]interface{}{"id": chatID, "type": "group"},
			"from":       map[string]interface{}{"id": 1, "is_bot": false, "first_name": "Load"},
			"text":       text,
			"entities": []map[string]interface{}{
				{"type": "bot_command", "offset": 0, "length": len(cmd)},
			},
		},
	}
}

func callbackUpdate(updateID, chatID int64, data string) map[string]interface{} {
	return map[string]interface{}{
		"update_id": updateID,
		"callback_query": map[string]interface{}{
			"id":   fmt.Sprintf("cb-%d", updateID),
			"from": map[string]interface{}{"id": 1, "is_bot": false, "first_name": "Load"},
			"data": data,
			"message": map[string]interface{}{
				"message_id": updateID,
				"date":       time.Now().Unix(),
				"chat":       map[string]interface{}{"id": chatID, "type": "group"},
			},
		},
	}
}

func postUpdate(update map[string]interface{}, st *stats) {
	body, _ := json.Marshal(update)
	req, _ := http.NewRequest(http.MethodPost, *baseURL+"/telegram/webhook", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if *secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", *secret)
	}

	resp, err := http.DefaultClient.Do(req)
	st.sent.Add(1)
	if err != nil {
		log.Printf("❌ Update Failed: %v", err)
		st.failed.Add(1)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		st.failed.Add(1)
	}
}
