package subscription

import (
	"log/slog"
	"slices"

	"github.com/rickgao/stockfeed/internal/codec"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
)

// Sender transmits encoded frames over the live connection.
type Sender interface {
	Send(data []byte) error
}

// Registry tracks desired, confirmed and rejected subscription keys.
type Registry struct {
	desired   map[model.Key]struct{}
	confirmed map[model.Key]struct{}
	rejected  map[model.Key]string

	sender  Sender // nil while disconnected
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an empty registry.
func New(m *metrics.Metrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		desired:   make(map[model.Key]struct{}),
		confirmed: make(map[model.Key]struct{}),
		rejected:  make(map[model.Key]string),
		metrics:   m,
		logger:    logger,
	}
}

// SetDesired replaces the desired set and returns the keys that were added
// and removed, both sorted. While connected, removed keys are unsubscribed
// and then added keys are subscribed; otherwise the set is only recorded.
// Keys with an empty symbol are ignored.
func (r *Registry) SetDesired(keys []model.Key) (added, removed []model.Key) {
	next := make(map[model.Key]struct{}, len(keys))
	for _, k := range keys {
		if k.Symbol == "" {
			continue
		}
		next[k] = struct{}{}
	}

	for k := range next {
		if _, ok := r.desired[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range r.desired {
		if _, ok := next[k]; !ok {
			removed = append(removed, k)
		}
	}
	sortKeys(added)
	sortKeys(removed)

	r.desired = next
	for _, k := range removed {
		delete(r.confirmed, k)
		delete(r.rejected, k)
	}
	for _, k := range added {
		delete(r.rejected, k)
	}
	r.metrics.SetDesired(len(r.desired))

	if r.sender != nil {
		for _, k := range removed {
			r.send(codec.ActionUnsubscribe, k)
		}
		for _, k := range added {
			r.send(codec.ActionSubscribe, k)
		}
	}

	if len(added) > 0 || len(removed) > 0 {
		r.logger.Debug("desired subscriptions changed",
			"added", len(added),
			"removed", len(removed),
			"desired", len(r.desired),
			"connected", r.sender != nil,
		)
	}

	return added, removed
}

// OnConnectionEstablished subscribes every desired key on the new
// connection, regardless of earlier confirmations.
func (r *Registry) OnConnectionEstablished(s Sender) {
	r.sender = s
	r.confirmed = make(map[model.Key]struct{})
	r.rejected = make(map[model.Key]string)

	keys := r.Desired()
	for _, k := range keys {
		r.send(codec.ActionSubscribe, k)
	}

	r.logger.Info("resubscribed desired keys", "count", len(keys))
}

// OnConnectionLost forgets the sender and all confirmations.
func (r *Registry) OnConnectionLost() {
	r.sender = nil
	r.confirmed = make(map[model.Key]struct{})
}

// OnConfirmed marks key confirmed. An empty market confirms every desired
// key with the same symbol. Keys not desired are ignored.
func (r *Registry) OnConfirmed(key model.Key) {
	for _, k := range r.match(key) {
		r.confirmed[k] = struct{}{}
		delete(r.rejected, k)
	}
}

// OnUnconfirmed clears the confirmation for key.
func (r *Registry) OnUnconfirmed(key model.Key) {
	if key.Market == "" {
		for k := range r.confirmed {
			if k.Symbol == key.Symbol {
				delete(r.confirmed, k)
			}
		}
		return
	}
	delete(r.confirmed, key)
}

// OnRejected records a server rejection for key and returns the desired
// keys it applied to. Rejections are cleared when the key is removed or
// subscribed again.
func (r *Registry) OnRejected(key model.Key, message string) []model.Key {
	matched := r.match(key)
	for _, k := range matched {
		delete(r.confirmed, k)
		r.rejected[k] = message
	}
	return matched
}

// Desired returns the desired keys, sorted.
func (r *Registry) Desired() []model.Key {
	return sortedKeys(r.desired)
}

// Confirmed returns the confirmed keys, sorted.
func (r *Registry) Confirmed() []model.Key {
	return sortedKeys(r.confirmed)
}

// Rejected returns a copy of the rejection messages by key.
func (r *Registry) Rejected() map[model.Key]string {
	out := make(map[model.Key]string, len(r.rejected))
	for k, msg := range r.rejected {
		out[k] = msg
	}
	return out
}

// Contains reports whether key is currently desired.
func (r *Registry) Contains(key model.Key) bool {
	_, ok := r.desired[key]
	return ok
}

// Len returns the number of desired keys.
func (r *Registry) Len() int {
	return len(r.desired)
}

// match resolves key against the desired set. An empty market matches by
// symbol alone.
func (r *Registry) match(key model.Key) []model.Key {
	if key.Symbol == "" {
		return nil
	}
	if key.Market != "" {
		if _, ok := r.desired[key]; ok {
			return []model.Key{key}
		}
		return nil
	}

	var out []model.Key
	for k := range r.desired {
		if k.Symbol == key.Symbol {
			out = append(out, k)
		}
	}
	sortKeys(out)
	return out
}

func (r *Registry) send(action string, key model.Key) {
	var (
		data []byte
		err  error
	)
	if action == codec.ActionUnsubscribe {
		data, err = codec.EncodeUnsubscribe(key)
	} else {
		data, err = codec.EncodeSubscribe(key)
	}
	if err != nil {
		r.logger.Warn("failed to encode request", "action", action, "key", key.String(), "error", err)
		return
	}

	// A failed send means the connection is going down; the next
	// OnConnectionEstablished resubscribes from the desired set.
	if err := r.sender.Send(data); err != nil {
		r.logger.Warn("failed to send request", "action", action, "key", key.String(), "error", err)
		return
	}
	r.metrics.FrameSent(action)
}

func sortedKeys(set map[model.Key]struct{}) []model.Key {
	out := make([]model.Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

func sortKeys(keys []model.Key) {
	slices.SortFunc(keys, model.CompareKeys)
}
