package main

import (
	"os"

	"github.com/mindspeak/mindspeak-backend/journalservice"
)

func main() {
	if err := journalservice.Run(); err != nil {
		os.Exit(1)
	}
}
