package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05"

// WebhookLookupKey selects which entity the /notification webhook resolves
// the processor id against. The notification id has historically been
// matched against reservations while every other path keys on payments, and
// product has not settled which is intended, so both stay supported.
func WebhookLookupKey() string {
	key := os.Getenv("WEBHOOK_LOOKUP_KEY")
	if key != "payment" {
		return "reservation"
	}
	return key
}

// MonitorInterval is the delay between payment status polls.
func MonitorInterval() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("MONITOR_INTERVAL_SECONDS"))
	if err != nil || secs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// MonitorMaxChecks bounds the polling loop. With the default interval the
// monitor gives up after roughly 30 minutes.
func MonitorMaxChecks() int {
	n, err := strconv.Atoi(os.Getenv("MONITOR_MAX_CHECKS"))
	if err != nil || n <= 0 {
		return 30
	}
	return n
}
