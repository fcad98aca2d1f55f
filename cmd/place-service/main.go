package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ssherwood/placeservice/internal/app"
	"github.com/ssherwood/placeservice/internal/config"
)

func main() {
	placeApp := &app.PlaceApplication{}

	if err := placeApp.Initialize(context.Background()); err != nil {
		slog.Error("Failed to initialize application", config.ErrAttr(err))
		_ = placeApp.Shutdown(context.Background())
		os.Exit(1)
	}

	placeApp.Run()
}
