package mailer

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"flamengo/src/lib"
	awslib "flamengo/src/lib/aws"
	"flamengo/src/types"
)

// NewMailerMessage queues an outgoing email: kafka when running locally,
// SQS otherwise. When the queue is unreachable the message is delivered
// directly so a broken broker never swallows a confirmation email.
func NewMailerMessage(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	apiEnv := os.Getenv("API_ENV")
	emailBody := &types.JSONB{
		"from":      input.From,
		"from-name": input.FromName,
		"to":        input.To,
		"cc":        input.Cc,
		"body":      input.Body,
		"html":      input.Html,
		"subject":   input.Subject,
	}
	if apiEnv == string(types.Local) {
		if err := lib.KafkaProduceMessage("emails", emailQueue, *emailBody); err != nil {
			log.Printf("error sending message to queue, delivering directly: %s\n", err.Error())
			return Deliver(input)
		}
		return nil
	}
	body, err := json.Marshal(&emailBody)
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(emailQueue, string(body)); err != nil {
		log.Printf("error sending message to queue, delivering directly: %s\n", err.Error())
		return Deliver(input)
	}
	return nil
}

// Deliver hands the message to the configured transport.
func Deliver(input *lib.SendMailInput) error {
	if os.Getenv("MAIL_PROVIDER") == "ses" {
		awslib.SESSendMessage(input.From, input.To, input.Subject, input.Body)
		return nil
	}
	return lib.SendMail(input)
}

// HandleQueuedMessage is the queue-worker side of NewMailerMessage.
func HandleQueuedMessage(payload string) {
	var body types.JSONB
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		log.Printf("[mailer] Could not parse queued message: %s\n", err.Error())
		return
	}
	input := lib.SendMailInput{
		From:     fmt.Sprint(body["from"]),
		FromName: fmt.Sprint(body["from-name"]),
		Subject:  fmt.Sprint(body["subject"]),
		Body:     fmt.Sprint(body["body"]),
	}
	if html, ok := body["html"].(bool); ok {
		input.Html = html
	}
	if to, ok := body["to"].([]any); ok {
		for _, addr := range to {
			input.To = append(input.To, fmt.Sprint(addr))
		}
	}
	if err := Deliver(&input); err != nil {
		log.Printf("[mailer] Failed to deliver queued message: %s\n", err.Error())
	}
}
