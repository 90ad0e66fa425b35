package demand

import (
	"encoding/json"
	"log/slog"

	"github.com/printerlink/agent/events"
)

// demandEnvelope is the inner shape of a {"type":"demand",...} frame:
// the discriminator lives at data.demand and must be popped out before
// the rest of the payload is interpreted, per §4.6.
type demandEnvelope struct {
	Demand Name `json:"demand"`
}

// Dispatch decodes an inbound envelope already known to be a demand
// frame (env.Type == "demand") and publishes the resulting Event onto
// dispatcher under Topic(name). dispatcher is an events.Dispatcher so the
// caller can point it at a plain *events.Bus (synchronous) or an
// *events.Worker (bounded-queue, asynchronous) without this function
// caring which. Unknown or malformed demands are logged and swallowed
// rather than propagated, matching the "unknown type or demand are
// logged and ignored" rule.
func Dispatch(dispatcher events.Dispatcher, env *events.InboundEnvelope, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	var disc demandEnvelope
	if err := json.Unmarshal(env.Data, &disc); err != nil {
		logger.Debug("malformed demand envelope", "component", "demand", "err", err)
		return
	}

	ev, ok, err := Decode(disc.Demand, env.Data)
	if err != nil {
		logger.Debug("malformed demand payload", "component", "demand", "demand", disc.Demand, "err", err)
		return
	}
	if !ok {
		logger.Debug("unknown demand", "component", "demand", "demand", disc.Demand)
		return
	}

	dispatcher.Dispatch(Topic(ev.Name), ev.Data, func(topic string, err error) {
		logger.Error("error handling demand", "component", "demand", "topic", topic, "err", err)
	})
}
