package main

import (
	"os"

	"winetour-api/core/logger"
	"winetour-api/core/server"
)

// @title Winetour API
// @version 1.0
// @description Booking backend for wine-tourism vendors with calendar sync

// @host localhost:7070
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
		os.Exit(1)
	}
}
