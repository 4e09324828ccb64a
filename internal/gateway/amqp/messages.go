package amqp

import (
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

const snapshotMessageType = "finance.snapshot"

// newSnapshotMessage wraps a full backup document. AppId carries the
// origin so subscribers can drop their own pushes.
func newSnapshotMessage(doc core.BackupData, origin string) (amqp091.Publishing, error) {
	body, err := gateway.EncodePayload(doc)
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		MessageId:    uuid.NewString(),
		AppId:        origin,
		Type:         snapshotMessageType,
		Body:         body,
	}, nil
}
