package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/osi4iot/hookrelay/sdk"
)

func main() {
	ctx := context.Background()

	// Example 1: Use all defaults (loads ./.hookrelay.yml or ~/.hookrelay.yml)
	fmt.Println("=== Example 1: Guard a tool call ===")
	relay, err := sdk.New(ctx, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer relay.Close()

	call := []byte(`{"tool_name":"Bash","tool_input":{"command":"rm -rf build"}}`)
	d := relay.Dispatch(ctx, sdk.PreToolUse, "", call)
	if d.Outcome == sdk.Block {
		fmt.Printf("Blocked: %s\n\n", d.Reason)
	} else {
		fmt.Printf("Allowed after %d hooks\n\n", len(d.Steps))
	}

	// Example 2: Expand a slash command, then run prompt hooks over it
	fmt.Println("=== Example 2: Slash command ===")
	comp, err := relay.Compose(ctx, "/review main.go", "example-session")
	var blocked *sdk.BlockedError
	switch {
	case errors.As(err, &blocked):
		log.Fatalf("command refused: %s", blocked.Reason)
	case err != nil:
		log.Fatal(err)
	case comp.Kind == sdk.Unknown:
		fmt.Printf("No such command; did you mean %v?\n", comp.Suggestions)
		return
	}

	payload := []byte(fmt.Sprintf(`{"prompt":%q}`, comp.Text))
	out, err := relay.Process(ctx, sdk.UserPromptSubmit, payload)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Prompt payload: %s\n", out)
}
