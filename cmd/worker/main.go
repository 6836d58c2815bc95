package main

import (
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/lumeocrm/campaign-service/internal/config"
	"github.com/lumeocrm/campaign-service/internal/db"
	"github.com/lumeocrm/campaign-service/internal/queue"
	"github.com/lumeocrm/campaign-service/internal/repository"
	"github.com/lumeocrm/campaign-service/internal/service"
	"github.com/lumeocrm/campaign-service/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	recipientRepo := &repository.RecipientRepository{DB: db.DB}
	segmentRepo := &repository.SegmentRepository{DB: db.DB}
	outcomeRepo := &repository.SendOutcomeRepository{DB: db.DB}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		OutcomeRepo:  outcomeRepo,
		Resolver: &service.RecipientResolver{
			RecipientRepo: recipientRepo,
			SegmentRepo:   segmentRepo,
		},
		Dispatcher: service.NewDispatcher(
			campaignRepo,
			outcomeRepo,
			transport.NewWebhookTransport(cfg.SendWebhookURL),
			cfg.BatchSize,
			cfg.InterBatchDelay,
		),
	}

	// Connect to RabbitMQ
	conn, err := amqp.Dial(cfg.AmqpURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"campaign_runs", // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	// One run at a time per worker; a run already throttles itself through
	// chunking and the inter-batch delay.
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatal("Failed to set QoS:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			handleDelivery(d, campaignService.ExecuteRun)
		}
	}()

	log.Println("Worker running, waiting for campaign runs...")
	<-forever
}

// handleDelivery processes one queued campaign run. A failed run is requeued
// exactly once: the broker marks the replay with Redelivered, and a second
// failure acks the message so a poisoned job cannot loop forever. ExecuteRun
// skips campaigns that already left the sending status, so a replay is safe.
func handleDelivery(d amqp.Delivery, run func(campaignID string) (*service.Tally, error)) {
	var job queue.RunJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Println("Invalid job:", err)
		d.Ack(false)
		return
	}

	log.Println("📩 Running campaign:", job.CampaignID)
	tally, err := run(job.CampaignID)
	if err != nil {
		log.Println("Campaign run failed:", err)
		if !d.Redelivered {
			d.Nack(false, true)
			return
		}
		log.Println("⚠️ Dropping campaign run after retry:", job.CampaignID)
	}
	if tally != nil {
		log.Printf("Campaign %s finished: attempted=%d succeeded=%d failed=%d",
			job.CampaignID, tally.Attempted, tally.Succeeded, tally.Failed)
	}

	d.Ack(false)
}
