package main

import (
	"os"

	"github.com/robotter-ai/ccxt-telegram-api/internal/app"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
)

func main() {
	a, err := app.New()
	if err != nil {
		logger.LogError(err, "startup")
		os.Exit(1)
	}
	a.Start()
}
