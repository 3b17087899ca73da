package boot

import (
	"log"
	"os"
	"time"

	"flamengo/src/config"
	"flamengo/src/db"
	"flamengo/src/lib"
	awslib "flamengo/src/lib/aws"
	"flamengo/src/lib/mailer"
	"flamengo/src/models"
	"flamengo/src/monitor"
	"flamengo/src/types"
	"flamengo/src/utils"
)

func InitDb() error {
	gdb := db.GetDb()
	return gdb.AutoMigrate(
		&models.Client{},
		&models.Onibus{},
		&models.Reservation{},
		&models.Payment{},
	)
}

// InitMonitors installs the process-wide monitor registry, polling the
// processor with its own id and confirming through the shared workflow, then
// re-registers monitors for payments that were still pending at shutdown.
func InitMonitors() *monitor.Registry {
	mp := lib.GetMercadoPagoClient()
	r := monitor.NewRegistry(
		config.MonitorInterval(),
		config.MonitorMaxChecks(),
		mp.FetchPaymentStatus,
		utils.ConfirmPayment,
	)
	monitor.Init(r)
	RecoverPendingMonitors(r)
	return r
}

// RecoverPendingMonitors restarts monitoring for pending payments still
// inside the polling window. Older ones are left for the stale sweep.
func RecoverPendingMonitors(r *monitor.Registry) {
	gdb := db.GetDb()
	window := config.MonitorInterval() * time.Duration(config.MonitorMaxChecks())
	cutoff := time.Now().Add(-window)
	var payments []models.Payment
	if err := gdb.
		Model(&models.Payment{}).
		Where("status = ? AND timestamp >= ?", types.PAYMENT_PENDING, cutoff).
		Find(&payments).
		Error; err != nil {
		log.Printf("Error loading pending payments for monitor recovery: %s\n", err.Error())
		return
	}
	for _, payment := range payments {
		r.Start(payment.ID, payment.PaymentID)
	}
	if len(payments) > 0 {
		log.Printf("Recovered %d payment monitors\n", len(payments))
	}
}

func sweepStalePayments() {
	gdb := db.GetDb()
	window := config.MonitorInterval() * time.Duration(config.MonitorMaxChecks())
	cutoff := time.Now().Add(-window)
	var count int64
	if err := gdb.
		Model(&models.Payment{}).
		Where("status = ? AND timestamp < ?", types.PAYMENT_PENDING, cutoff).
		Count(&count).
		Error; err != nil {
		log.Printf("Error counting stale payments: %s\n", err.Error())
		return
	}
	if count > 0 {
		log.Printf("%d pending payments are older than the polling window\n", count)
	}
}

func InitScheduler() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	if _, err := lib.CreateCronJob(sweepStalePayments, time.Hour); err != nil {
		return err
	}
	sched.Start()
	return nil
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down Scheduler: %s\n", err.Error())
	}
}

// InitBroker wires the email queue worker: kafka when running locally, SQS
// everywhere else.
func InitBroker() {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	if emailQueue == "" {
		log.Println("EMAIL_QUEUE is not set, skipping broker init")
		return
	}
	if os.Getenv("API_ENV") == string(types.Local) {
		if _, err := lib.KafkaCreateTopics(emailQueue, "payments-approved"); err != nil {
			log.Printf("Error creating topics: %s\n", err.Error())
		}
		lib.KafkaConsumeTopic("mailer", emailQueue, func(value []byte) {
			mailer.HandleQueuedMessage(string(value))
		})
		return
	}
	awslib.NewSQSConsumer(emailQueue, mailer.HandleQueuedMessage).Listen()
}
