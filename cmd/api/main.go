package main

import (
	"log/slog"
	"os"

	"github.com/lam4est/CinemaX/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
