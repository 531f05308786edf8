package mdns

// listenerKey groups listeners by canonical name and type
type listenerKey struct {
	name   string
	rrtype uint16
}

// observerList holds the listeners of one key. Removal during iteration
// leaves a nil slot that is compacted once iteration ends; listeners added
// during iteration are visited by it.
type observerList struct {
	listeners []*Listener
	iterating int
}

func (o *observerList) add(l *Listener) {
	o.listeners = append(o.listeners, l)
}

func (o *observerList) remove(l *Listener) {
	for i, cur := range o.listeners {
		if cur == l {
			o.listeners[i] = nil
			break
		}
	}
	if o.iterating == 0 {
		o.compact()
	}
}

func (o *observerList) each(fn func(*Listener)) {
	o.iterating++
	for i := 0; i < len(o.listeners); i++ {
		if l := o.listeners[i]; l != nil {
			fn(l)
		}
	}
	o.iterating--
	if o.iterating == 0 {
		o.compact()
	}
}

func (o *observerList) empty() bool {
	for _, l := range o.listeners {
		if l != nil {
			return false
		}
	}
	return true
}

func (o *observerList) compact() {
	kept := o.listeners[:0]
	for _, l := range o.listeners {
		if l != nil {
			kept = append(kept, l)
		}
	}
	for i := len(kept); i < len(o.listeners); i++ {
		o.listeners[i] = nil
	}
	o.listeners = kept
}
