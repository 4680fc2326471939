package editor

type (
	// ProgressSink receives incremental progress of long operations. Units
	// are operation specific (frames for audio scans).
	ProgressSink interface {
		Begin(name string, total int)
		Advance(n int)
		End()
	}

	// NopProgress discards progress.
	NopProgress struct{}

	// BrokerProgress forwards progress to the GUI channel of a Broker as
	// ProgressMessages, dropping them if the channel is full.
	BrokerProgress struct {
		broker *Broker
		name   string
		total  int
		done   int
	}

	ProgressMessage struct {
		Name     string
		Done     int
		Total    int
		Finished bool
	}
)

func (NopProgress) Begin(string, int) {}
func (NopProgress) Advance(int)       {}
func (NopProgress) End()              {}

func NewBrokerProgress(b *Broker) *BrokerProgress {
	return &BrokerProgress{broker: b}
}

func (p *BrokerProgress) Begin(name string, total int) {
	p.name, p.total, p.done = name, total, 0
	TrySend(p.broker.ToGUI, any(ProgressMessage{Name: name, Total: total}))
}

func (p *BrokerProgress) Advance(n int) {
	p.done = min(p.done+n, p.total)
	TrySend(p.broker.ToGUI, any(ProgressMessage{Name: p.name, Done: p.done, Total: p.total}))
}

func (p *BrokerProgress) End() {
	TrySend(p.broker.ToGUI, any(ProgressMessage{Name: p.name, Done: p.total, Total: p.total, Finished: true}))
}
