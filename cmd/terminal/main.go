package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/riolentius/cahaya-gading-terminal/internal/app"
)

func main() {
	_ = godotenv.Load()

	a := app.New()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		a.Shutdown()
	}()

	if err := a.Run(); err != nil {
		log.Fatal(err)
	}
}
