package services

import (
	"context"
	"encoding/json"
	"log"

	pubnub "github.com/pubnub/go"
)

// PaymentListener consumes payment notifications published by the
// payment collaborator and drives the matching reservation transition:
// a successful payment commits the hold, a failed or cancelled one
// releases it. Commit/Release idempotency makes redelivered
// notifications harmless.
type PaymentListener struct {
	pubnub  *pubnub.PubNub
	manager *ReservationManager
	channel string
}

func NewPaymentListener(pn *pubnub.PubNub, manager *ReservationManager) *PaymentListener {
	return &PaymentListener{
		pubnub:  pn,
		manager: manager,
		channel: "payment-notifications",
	}
}

func (l *PaymentListener) Start() {
	if l.pubnub == nil {
		return
	}
	go l.listen()
}

func (l *PaymentListener) listen() {
	listener := pubnub.NewListener()

	l.pubnub.AddListener(listener)
	l.pubnub.Subscribe().
		Channels([]string{l.channel}).
		Execute()

	for message := range listener.Message {
		go l.handlePaymentNotification(message)
	}
}

func (l *PaymentListener) handlePaymentNotification(message *pubnub.PNMessage) {
	var notification struct {
		ReservationID string `json:"reservation_id"`
		Status        string `json:"status"`
	}

	data, ok := message.Message.(map[string]interface{})
	if !ok {
		return
	}

	jsonData, _ := json.Marshal(data)
	if err := json.Unmarshal(jsonData, &notification); err != nil {
		log.Printf("Error parsing payment notification: %v", err)
		return
	}

	if notification.ReservationID == "" {
		return
	}

	ctx := context.Background()

	switch notification.Status {
	case "success":
		if err := l.manager.Commit(ctx, notification.ReservationID); err != nil {
			log.Printf("Payment success for %s could not commit: %v", notification.ReservationID, err)
		}
	case "failed", "cancelled":
		if err := l.manager.Release(ctx, notification.ReservationID); err != nil {
			log.Printf("Payment %s for %s could not release: %v", notification.Status, notification.ReservationID, err)
		}
	}
}
