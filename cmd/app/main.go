package main

import (
	"bengkel/config"
	"bengkel/di"
	"bengkel/shared/logger"
)

// @title Bengkel Reservation API
// @version 1.0
// @description Vehicle service schedule and booking reservation API.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	http := di.InitializeService()
	http.Serve()
}
