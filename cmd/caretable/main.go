package main

import "github.com/marshallshelly/caretable/cmd/caretable/commands"

func main() {
	commands.Execute()
}
