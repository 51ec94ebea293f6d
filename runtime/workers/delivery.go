package workers

import (
	"context"
	"sync"

	"chatsapp/contract"
	"chatsapp/domain"
	"chatsapp/domain/event"
)

type deliveryGroup struct {
	wg sync.WaitGroup
}

func (g *deliveryGroup) wait() {
	g.wg.Wait()
}

// startDelivery spawns the outbound delivery task for one (member, room)
// pairing. It drains the member's inbox and serializes lines onto the shared
// connection sink. It terminates when the inbox is closed by the broker (the
// designed cleanup trigger) or when the context is canceled, so a task can
// never outlive a server shutdown even if no Leave event is ever processed.
func (b *Broker) startDelivery(ctx context.Context, user string, inbox <-chan domain.Message, sink contract.LineSink) {
	b.deliveries.wg.Add(1)
	go func() {
		defer b.deliveries.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-inbox:
				if !ok {
					return
				}
				if err := sink.WriteLine(msg.Render()); err != nil {
					b.log.Debug("Write to member failed, pruning", "member", user, "error", err)
					b.reportDead(user)
					return
				}
			}
		}
	}()
}

// reportDead tells the broker a member's connection is gone so the stale
// membership entry gets pruned instead of accumulating dropped messages.
// Best-effort: if the event channel is full the next Leave will clean up.
func (b *Broker) reportDead(user string) {
	select {
	case b.events <- event.Leave{User: user}:
	default:
	}
}
