package main

import (
	cmd "github.com/klinge/mangadex-anilist-sync/cmd/mdsync"
)

func main() {
	cmd.Execute()
}
