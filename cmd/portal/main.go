package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"

	apptHandler "medportal/internal/appointments/handler"
	apptRepo "medportal/internal/appointments/repository"
	apptService "medportal/internal/appointments/service"
	availHandler "medportal/internal/availability/handler"
	availService "medportal/internal/availability/service"
	chatHandler "medportal/internal/chat/handler"
	chatRepo "medportal/internal/chat/repository"
	chatService "medportal/internal/chat/service"
	doctorHandler "medportal/internal/doctors/handler"
	"medportal/internal/doctors/reconciler"
	doctorRepo "medportal/internal/doctors/repository"
	doctorService "medportal/internal/doctors/service"
	fileHandler "medportal/internal/files/handler"
	"medportal/internal/files/storage"
	"medportal/internal/realtime"
	"medportal/internal/sweeper"
	userHandler "medportal/internal/users/handler"
	userRepo "medportal/internal/users/repository"
	userService "medportal/internal/users/service"
	"medportal/pkg/app"
	"medportal/pkg/client"
	"medportal/pkg/config"
	"medportal/pkg/contracts"
	"medportal/pkg/events"
)

const ServiceName = "portal"

func main() {
	// Absence of a .env file is the normal case in deployed environments.
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Portal service")

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher := initPublisher(cfg)

	doctors := doctorRepo.NewMongoDoctorRepository(cfg)
	users := userRepo.NewMongoUserRepository(cfg)
	appointments := apptRepo.NewMongoAppointmentRepository(cfg)
	sessions := chatRepo.NewMongoSessionRepository(cfg)

	rec := reconciler.New(doctors, users, cfg.Log)

	availabilitySvc := availService.NewAvailabilityService(cfg, doctors, users, rec, publisher)
	appointmentSvc := apptService.NewAppointmentService(cfg, appointments, doctors, users, rec, publisher)
	doctorSvc := doctorService.NewDoctorService(cfg, doctors)
	userSvc := userService.NewUserService(cfg, users)
	chatSvc := chatService.NewChatService(cfg, sessions,
		chatService.NewWSAgentChannel(cfg.AgentWSURL),
		chatService.NewRESTAgentChannel(client.NewHttpClient(cfg.AgentBaseURL)),
	)

	expirySweeper := sweeper.New(cfg, doctors, users, appointments, appointmentSvc, publisher)
	runner := sweeper.NewRunner(cfg, expirySweeper, doctors)
	runner.Start()

	bridge := realtime.NewBridge(func(ctx context.Context, doctorID string) (realtime.Stream, error) {
		return doctors.Watch(ctx, doctorID)
	}, cfg.Log)

	slotsHandler := realtime.NewSlotsHandler(bridge, cfg.Log)
	chatHTTPHandler := chatHandler.NewChatHandler(chatSvc, cfg.Log)

	apiHandlers := []contracts.Handler{
		userHandler.NewUserHandler(userSvc, cfg.Log),
		doctorHandler.NewDoctorHandler(doctorSvc, cfg.Log),
		availHandler.NewAvailabilityHandler(availabilitySvc, cfg.Log),
		apptHandler.NewAppointmentHandler(appointmentSvc, expirySweeper, cfg.Log),
		chatHTTPHandler,
		fileHandler.NewUploadHandler(storage.NewS3Storage(cfg), int64(cfg.MaxRequestSize), cfg.Log),
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetWorkers(runner, publisher)
	serverApp.SetApp(apiHandlers, func(router *httprouter.Router) {
		slotsHandler.RegisterRoutes(router)
		chatHTTPHandler.RegisterWSRoutes(router)
	})
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, domain events disabled")
		return events.NewNoopPublisher()
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic, cfg.Log)
}
