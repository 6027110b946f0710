package order

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/obelisco/pkg/models"
	"go.uber.org/zap"
)

// Messages
type processOrder struct {
	Record *models.OrderRecord
}

type orderProcessed struct {
	OrderID string
}

// processorActor simulates the processing latency between submission and
// confirmation.
type processorActor struct {
	delay  time.Duration
	logger *zap.Logger
}

func (a *processorActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *processOrder:
		// Simulate order processing
		time.Sleep(a.delay)

		a.logger.Info("Order processed",
			zap.String("order_id", msg.Record.ID),
			zap.Float64("total", msg.Record.Total))

		ctx.Respond(&orderProcessed{OrderID: msg.Record.ID})

	case *actor.Started:
		a.logger.Info("Order processor started")

	case *actor.Stopping:
		a.logger.Info("Order processor stopping")

	case *actor.Stopped:
		a.logger.Info("Order processor stopped")
	}
}

// ActorProcessor routes submissions through the processor actor and waits
// for its confirmation.
type ActorProcessor struct {
	root    *actor.RootContext
	pid     *actor.PID
	timeout time.Duration
}

func NewActorProcessor(system *actor.ActorSystem, delay time.Duration, logger *zap.Logger) (*ActorProcessor, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &processorActor{delay: delay, logger: logger.Named("order-processor")}
	})
	pid, err := system.Root.SpawnNamed(props, "order-processor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn order processor: %w", err)
	}

	return &ActorProcessor{
		root:    system.Root,
		pid:     pid,
		timeout: delay + 5*time.Second,
	}, nil
}

func (p *ActorProcessor) Process(_ context.Context, rec *models.OrderRecord) error {
	future := p.root.RequestFuture(p.pid, &processOrder{Record: rec}, p.timeout)
	result, err := future.Result()
	if err != nil {
		return fmt.Errorf("failed to get processor response: %w", err)
	}

	if _, ok := result.(*orderProcessed); !ok {
		return fmt.Errorf("unexpected processor response %T", result)
	}
	return nil
}

// InstantProcessor completes processing immediately. Used in tests.
type InstantProcessor struct{}

func (InstantProcessor) Process(context.Context, *models.OrderRecord) error {
	return nil
}
