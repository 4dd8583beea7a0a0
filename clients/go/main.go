// huddle CLI - minimal terminal client for the huddle chat service.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huddlechat/huddle/clients/go/huddle"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("HUDDLE_URL")
	client := huddle.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "register":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: huddle register <email> <username> <password>")
			os.Exit(1)
		}
		exitOnError(client.Register(os.Args[2], os.Args[3], os.Args[4]))
		fmt.Printf("registered as %s\n", client.Username)
		fmt.Println(client.Token)

	case "chat":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: huddle chat <email> <password>")
			os.Exit(1)
		}
		exitOnError(client.Login(os.Args[2], os.Args[3]))
		chat(client)

	default:
		usage()
		os.Exit(1)
	}
}

// chat runs an interactive session: stdin lines go out as messages, inbound
// frames print as they arrive.
func chat(client *huddle.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	session, err := client.Connect(ctx)
	cancel()
	exitOnError(err)
	defer session.Close()

	go func() {
		for frame := range session.Frames() {
			printFrame(frame)
		}
		if err := session.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
		}
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		exitOnError(session.SendText(line))
	}
}

func printFrame(frame huddle.Frame) {
	switch frame.Event {
	case "chat_message":
		var msg huddle.Message
		if json.Unmarshal(frame.Data, &msg) != nil {
			return
		}
		ts := time.UnixMilli(msg.Timestamp).Format("15:04:05")
		if msg.Kind == "image" {
			fmt.Printf("[%s] %s sent an image: %s\n", ts, msg.Username, msg.URL)
			return
		}
		fmt.Printf("[%s] %s: %s\n", ts, msg.Username, msg.Text)

	case "load_messages":
		var history []huddle.Message
		if json.Unmarshal(frame.Data, &history) != nil {
			return
		}
		for _, msg := range history {
			ts := time.UnixMilli(msg.Timestamp).Format("01-02 15:04")
			fmt.Printf("[%s] %s: %s\n", ts, msg.Username, msg.Text)
		}

	case "active_users":
		var count int
		if json.Unmarshal(frame.Data, &count) != nil {
			return
		}
		fmt.Printf("* %d online\n", count)

	case "error":
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(frame.Data, &e) != nil {
			return
		}
		fmt.Fprintf(os.Stderr, "! %s\n", e.Message)
	}
}

func usage() {
	fmt.Println(`huddle - group chat client

Usage:
  huddle register <email> <username> <password>
  huddle chat <email> <password>

Environment:
  HUDDLE_URL   server base URL (default http://localhost:8080)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
