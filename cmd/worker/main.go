package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	redisBroker "github.com/jwalitptl/clinic-api/pkg/messaging/redis"
)

// The worker consumes appointment lifecycle events and sends patient
// notifications. It is fully decoupled from the API: losing an event
// loses a courtesy email, never an appointment.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
	})
	zlog := log.Zerolog()

	if !cfg.Redis.Enabled {
		log.Fatal(nil, "worker requires redis to be enabled")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()
	userRepo := postgres.NewUserRepository(db)

	broker, err := redisBroker.NewRedisBroker(cfg.Redis.URL, zlog)
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	sender := email.NewSender(cfg.Email, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channels := []string{
		appointmentService.ChannelBooked,
		appointmentService.ChannelCompleted,
		appointmentService.ChannelCancelled,
	}

	var wg sync.WaitGroup
	for _, channel := range channels {
		messages, err := broker.Subscribe(ctx, channel)
		if err != nil {
			log.Fatal(err, "failed to subscribe", "channel", channel)
		}

		wg.Add(1)
		go func(channel string, messages <-chan []byte) {
			defer wg.Done()
			for payload := range messages {
				handleEvent(ctx, log, userRepo, sender, channel, payload)
			}
		}(channel, messages)
	}

	log.Info("worker started", "channels", channels)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	cancel()
	wg.Wait()
}

func handleEvent(
	ctx context.Context,
	log *logger.Logger,
	userRepo repository.UserRepository,
	sender email.Sender,
	channel string,
	payload []byte,
) {
	var event appointmentService.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Error(err, "failed to decode event", "channel", channel)
		return
	}
	if event.Appointment == nil {
		log.Warn("event without appointment payload", "channel", channel)
		return
	}

	patient, err := userRepo.Get(ctx, event.Appointment.PatientID)
	if err != nil {
		log.Error(err, "failed to resolve patient for notification",
			"appointment_id", event.Appointment.ID.String())
		return
	}

	switch channel {
	case appointmentService.ChannelBooked:
		err = sender.SendBookingConfirmation(patient.Email, event.Appointment)
	case appointmentService.ChannelCompleted:
		err = sender.SendCompletion(patient.Email, event.Appointment)
	case appointmentService.ChannelCancelled:
		err = sender.SendCancellation(patient.Email, event.Appointment)
	}
	if err != nil {
		log.Error(err, "failed to send notification",
			"channel", channel,
			"appointment_id", event.Appointment.ID.String())
		return
	}

	log.Info("notification handled",
		"channel", channel,
		"appointment_id", event.Appointment.ID.String())
}
