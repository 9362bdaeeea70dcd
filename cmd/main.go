// cmd/main.go
package main

import (
	"task-manager-api/app"
)

// @title           Task Manager API
// @version         1.0
// @description     Task tracking backend with JWT access tokens and rotating refresh tokens.

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
