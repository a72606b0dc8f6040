//go:build integration

package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/felixgeelhaar/learnlens/internal/domain"
	"github.com/felixgeelhaar/learnlens/internal/queue"
)

func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get AMQP URL: %v", err)
	}
	return amqpURL
}

func TestIntegration_Connection(t *testing.T) {
	conn, err := queue.NewConnection(setupRabbitMQ(t))
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestIntegration_PublishAndConsume(t *testing.T) {
	conn, err := queue.NewConnection(setupRabbitMQ(t))
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	defer conn.Close()

	var (
		mu       sync.Mutex
		received []domain.ProgressEvent
		done     = make(chan struct{})
	)
	consumer := queue.NewConsumer(conn, func(ctx context.Context, e domain.ProgressEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
		if len(received) == 2 {
			close(done)
		}
		return nil
	}, queue.ConsumerConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer consumer.Stop()

	producer := queue.NewProducer(conn)
	enrolled := domain.NewProgressEvent(domain.EventEnrolled, "default", "1", time.Now())
	completed := domain.NewProgressEvent(domain.EventLessonCompleted, "default", "1", time.Now())
	completed.LessonID = "1-1-1"
	for _, e := range []domain.ProgressEvent{enrolled, completed} {
		if err := producer.PublishEvent(ctx, e); err != nil {
			t.Fatalf("PublishEvent() error = %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for events")
	}

	mu.Lock()
	defer mu.Unlock()
	seen := map[string]bool{}
	for _, e := range received {
		seen[e.ID.String()] = true
	}
	if !seen[enrolled.ID.String()] || !seen[completed.ID.String()] {
		t.Errorf("received = %+v; want both events", received)
	}
}
