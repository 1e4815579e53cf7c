package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gramshiksha/gramshiksha-client/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init offline agent: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()
	a.Log.Info("Offline agent running",
		"db_path", a.Cfg.DBPath,
		"api_base_url", a.Cfg.APIBaseURL,
		"student_id", a.Cfg.StudentID,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	a.Log.Info("Shutting down offline agent...")
}
