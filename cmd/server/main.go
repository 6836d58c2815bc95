// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/lumeocrm/campaign-service/internal/config"
	"github.com/lumeocrm/campaign-service/internal/controller"
	"github.com/lumeocrm/campaign-service/internal/db"
	"github.com/lumeocrm/campaign-service/internal/handler"
	"github.com/lumeocrm/campaign-service/internal/queue"
	"github.com/lumeocrm/campaign-service/internal/repository"
	"github.com/lumeocrm/campaign-service/internal/service"
	"github.com/lumeocrm/campaign-service/internal/transport"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	// Init DB
	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	recipientRepo := &repository.RecipientRepository{DB: db.DB}
	segmentRepo := &repository.SegmentRepository{DB: db.DB}
	outcomeRepo := &repository.SendOutcomeRepository{DB: db.DB}

	resolver := &service.RecipientResolver{
		RecipientRepo: recipientRepo,
		SegmentRepo:   segmentRepo,
	}

	dispatcher := service.NewDispatcher(
		campaignRepo,
		outcomeRepo,
		transport.NewWebhookTransport(cfg.SendWebhookURL),
		cfg.BatchSize,
		cfg.InterBatchDelay,
	)

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		OutcomeRepo:  outcomeRepo,
		Resolver:     resolver,
		Dispatcher:   dispatcher,
	}

	// When a broker is configured, runs are handed to cmd/worker via AMQP;
	// otherwise an in-memory queue executes them in this process.
	if os.Getenv("USE_AMQP") == "true" {
		amqpQueue, err := queue.NewAmqpQueue(cfg.AmqpURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer amqpQueue.Close()
		campaignService.Queue = amqpQueue
	} else {
		q := queue.NewInMemoryQueue()
		queue.StartCampaignRunSubscriber(q, func(campaignID string) error {
			_, err := campaignService.ExecuteRun(campaignID)
			return err
		})
		campaignService.Queue = q
	}

	scheduler := service.NewScheduler(campaignService)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer scheduler.Stop()

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}
	trackingHandler := &handler.TrackingHandler{Service: campaignService}
	segmentHandler := &handler.SegmentHandler{
		SegmentRepo:   segmentRepo,
		RecipientRepo: recipientRepo,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Put("/campaigns/{id}", campaignController.UpdateCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/{id}/send", campaignController.SendCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/cancel", campaignController.CancelCampaign)
	r.Post("/campaigns/{id}/personalized-preview", campaignController.PersonalizedPreview)

	// Segment routes
	r.Post("/segments", segmentHandler.CreateSegment)
	r.Get("/segments", segmentHandler.ListSegments)
	r.Get("/segments/{id}/preview", segmentHandler.PreviewSegment)

	// Engagement tracking
	r.Get("/t/{id}/open.gif", trackingHandler.TrackOpen)
	r.Get("/t/{id}/click", trackingHandler.TrackClick)

	log.Println("🚀 Server running on :" + cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, r))
}
