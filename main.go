package main

import (
	"log"
	"net/http"

	"payment-service/internal/api"
	"payment-service/internal/config"
	"payment-service/internal/db"
	"payment-service/internal/event"
	"payment-service/internal/logging"
	"payment-service/internal/metrics"
	"payment-service/internal/order"
	"payment-service/internal/payment"
	"payment-service/internal/paypal"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	cfg := config.MustLoadConfig(".")

	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics)

	connStr := db.GetConnStr(cfg.Database)
	db.RunMigrations(connStr, "migrations")

	dbpool, err := db.GetPool(connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer dbpool.Close()

	repoLog := db.NewLogRepository(dbpool)
	repoOrder := db.NewOrderRepository(dbpool)
	repoPayment := db.NewPaymentRepository(dbpool)

	client, err := paypal.NewClient(cfg.Paypal, logger)
	if err != nil {
		log.Fatal(err)
	}

	var publisher *event.Publisher
	if cfg.Kafka.Broker.URL != "" {
		writer := event.NewWriter(cfg.Kafka)
		defer writer.Close()
		publisher = event.NewPublisher(writer, logger)
	}

	creator := order.NewCreator(repoLog, repoOrder, client, logger)
	capturer := payment.NewCapturer(dbpool, repoLog, repoOrder, repoPayment, client, publisher, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /liveness", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	api.NewHandler(creator, capturer, logger).Register(mux)

	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, mux))
}
