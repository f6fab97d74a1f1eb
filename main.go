package main

import "github.com/fgrehm/vscode-search-provider/cmd"

func main() {
	cmd.Execute()
}
