package main

import "github.com/yrain/smart-cache/internal/cmd"

func main() {
	cmd.Execute()
}
