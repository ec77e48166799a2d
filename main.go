package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// main запускает HTTP API, очередь задач, планировщик и Telegram-бота.
func main() {
	config := LoadConfig()

	store, err := NewHabitsStore(config.DatabaseURL)
	if err != nil {
		log.Fatalf("cannot init store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("cannot close store: %v", err)
		}
	}()

	bot, err := NewTelegramBot(store, config.BotToken)
	if err != nil {
		log.Fatalf("cannot init bot: %v", err)
	}

	notifier := NewNotifier(store, bot)
	queue := NewTaskQueue(config.QueueSize, config.QueueWorkers, notifier.HandleTask)

	scheduler, err := NewScheduler(queue, config.ReminderCron)
	if err != nil {
		log.Fatalf("cannot init scheduler: %v", err)
	}

	api := NewAPI(store, queue)
	server := &http.Server{
		Addr:    config.HTTPAddr,
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	queue.Start(ctx)
	scheduler.Start()

	go func() {
		log.Printf("HTTP server started on %s", config.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	go func() {
		if err := bot.Start(ctx); err != nil {
			log.Fatalf("bot error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutdown requested")
	scheduler.Stop()
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	queue.Wait()
}
