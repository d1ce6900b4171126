package events

// Notifier collects notifications in emission order for one resolution
// step. The zero value is not usable; call NewNotifier.
type Notifier struct {
	formatter *Formatter
	payloads  []Payload
}

// NewNotifier returns an empty collector rendering with formatter.
func NewNotifier(formatter *Formatter) *Notifier {
	if formatter == nil {
		formatter = NewFormatter(BaseLanguage)
	}
	return &Notifier{formatter: formatter}
}

// Add appends payloads in the order given.
func (n *Notifier) Add(payloads ...Payload) {
	for _, p := range payloads {
		if p == nil {
			continue
		}
		n.payloads = append(n.payloads, p)
	}
}

// Len reports how many notifications have been collected.
func (n *Notifier) Len() int {
	return len(n.payloads)
}

// Payloads returns a copy of the collected payloads.
func (n *Notifier) Payloads() []Payload {
	out := make([]Payload, len(n.payloads))
	copy(out, n.payloads)
	return out
}

// Events renders the collected payloads.
func (n *Notifier) Events() []Event {
	out := make([]Event, 0, len(n.payloads))
	for _, p := range n.payloads {
		out = append(out, n.Render(p))
	}
	return out
}

// Render turns one payload into an Event.
func (n *Notifier) Render(p Payload) Event {
	return Event{
		Type:           p.Kind(),
		Payload:        p,
		Message:        n.formatter.Format(p),
		TargetPlayerID: TargetOf(p),
	}
}

// Reset drops collected payloads so the notifier can serve the next step.
func (n *Notifier) Reset() {
	n.payloads = n.payloads[:0]
}
