// Package queue contains the background consumer that listens to the
// parking.sessions queue and writes one line per event to logs/parking.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const logFileName = "parking.log"

// StartSessionConsumer connects to RabbitMQ, declares the parking.sessions
// queue (durable), and starts consuming messages. Each message is appended
// to <logDir>/parking.log in a single-line, human-friendly format. The
// function runs a reconnect loop and only returns when ctx is cancelled;
// messages that cannot be handled are rejected without requeue so the
// loop keeps going.
func StartSessionConsumer(ctx context.Context, url, logDir string, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "session-consumer")

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, logDir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}

	if _, err := ch.QueueDeclare(SessionsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(SessionsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(logDir, d.Body); err != nil {
				log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(logDir string, body []byte) error {
	var ev SessionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := formatSessionLine(ev)
	if err != nil {
		return err
	}
	return appendLine(logDir, line)
}

func appendLine(logDir, line string) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatSessionLine(ev SessionEvent) (string, error) {
	user := "-"
	if ev.UserID != nil {
		user = fmt.Sprintf("%d", *ev.UserID)
	}
	switch ev.Type {
	case SessionOpened:
		return fmt.Sprintf("[%s] Car parked | ticket=%s | slot_id=%d | vehicle=%q | user_id=%s | start=%s\n",
			ev.OccurredAt, ev.TicketID, ev.SlotID, ev.VehicleRegNo, user, ev.StartTime), nil
	case SessionClosed:
		return fmt.Sprintf("[%s] Car released | ticket=%s | slot_id=%d | vehicle=%q | user_id=%s | start=%s | end=%s | duration=%s\n",
			ev.OccurredAt, ev.TicketID, ev.SlotID, ev.VehicleRegNo, user, ev.StartTime, ev.EndTime,
			time.Duration(ev.DurationSeconds)*time.Second), nil
	}
	return "", fmt.Errorf("unknown event type %q", ev.Type)
}
