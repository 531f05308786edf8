package mdns

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/miekg/dns"
)

// TransactionFlags select where a transaction looks for answers and how
// many it delivers
type TransactionFlags uint8

const (
	// QueryCache serves matching records from the cache on Start
	QueryCache TransactionFlags = 1 << iota
	// QueryNetwork sends a query and waits for answers until the timeout
	QueryNetwork
	// SingleResult ends the transaction after the first result
	SingleResult
)

// TransactionResult is the kind of a transaction callback
type TransactionResult int

const (
	// ResultRecord carries one matching record
	ResultRecord TransactionResult = iota
	// ResultNsec reports that the name has no record of the type
	ResultNsec
	// ResultNoResults ends a single-result transaction without an answer
	ResultNoResults
	// ResultDone ends a multi-result transaction
	ResultDone
)

func (r TransactionResult) String() string {
	switch r {
	case ResultRecord:
		return "record"
	case ResultNsec:
		return "nsec"
	case ResultNoResults:
		return "no_results"
	default:
		return "done"
	}
}

// TransactionCallback receives transaction results. rec is nil unless
// result is ResultRecord.
type TransactionCallback func(result TransactionResult, rec *Record)

// Transaction is a one-shot lookup. Every result other than ResultRecord
// is terminal, as is the first result of a SingleResult transaction. No
// callback runs after a terminal one or after Close.
type Transaction struct {
	client   *Client
	rrtype   uint16
	name     string
	flags    TransactionFlags
	callback TransactionCallback

	listener *Listener
	timeout  sequence.Cancelable
	started  bool
}

func newTransaction(client *Client, rrtype uint16, name string, flags TransactionFlags, callback TransactionCallback) *Transaction {
	return &Transaction{
		client:   client,
		rrtype:   rrtype,
		name:     name,
		flags:    flags,
		callback: callback,
	}
}

// Start serves cached records and, with QueryNetwork, sends a query and
// waits for answers. Callbacks may run before Start returns.
func (t *Transaction) Start() error {
	if t.started {
		return ErrAlreadyStarted
	}
	if t.flags&(QueryCache|QueryNetwork) == 0 {
		return ErrInvalidFlags
	}
	t.started = true

	if t.flags&QueryCache != 0 {
		t.serveRecordsFromCache()
		if !t.isActive() {
			return nil
		}
	}

	if t.flags&QueryNetwork != 0 {
		if err := t.queryAndListen(); err != nil {
			t.reset()
			return err
		}
		return nil
	}

	t.signalTransactionOver()
	return nil
}

// Close cancels the transaction. It is safe to call from the callback.
func (t *Transaction) Close() {
	t.reset()
}

// Name returns the name being looked up
func (t *Transaction) Name() string {
	return t.name
}

// Type returns the record type being looked up
func (t *Transaction) Type() uint16 {
	return t.rrtype
}

func (t *Transaction) isActive() bool {
	return t.callback != nil
}

func (t *Transaction) serveRecordsFromCache() {
	core := t.client.core
	if core == nil {
		return
	}

	records := core.queryCache(t.rrtype, t.name)
	for _, rec := range records {
		if !t.isActive() {
			return
		}
		t.triggerCallback(ResultRecord, rec)
	}
	if len(records) > 0 {
		return
	}

	nsecs := core.queryCache(dns.TypeNSEC, t.name)
	if len(nsecs) == 0 {
		return
	}
	if nsec, ok := nsecs[0].RR.(*dns.NSEC); ok && !nsecHasType(nsec, t.rrtype) {
		t.triggerCallback(ResultNsec, nil)
	}
}

func (t *Transaction) queryAndListen() error {
	listener := t.client.CreateListener(t.rrtype, t.name, transactionListener{t})
	if err := listener.Start(); err != nil {
		return fmt.Errorf("failed to listen for %s: %w", t.name, err)
	}
	t.listener = listener

	if err := t.client.core.sendQuery(t.rrtype, t.name); err != nil {
		return err
	}

	t.client.runner.PostDelayed(t.client.transactionTimeout, t.timeout.Wrap(t.signalTransactionOver))
	return nil
}

func (t *Transaction) signalTransactionOver() {
	if t.flags&SingleResult != 0 {
		t.triggerCallback(ResultNoResults, nil)
	} else {
		t.triggerCallback(ResultDone, nil)
	}
}

func (t *Transaction) triggerCallback(result TransactionResult, rec *Record) {
	if !t.isActive() {
		return
	}

	callback := t.callback
	if t.flags&SingleResult != 0 || result != ResultRecord {
		t.reset()
	}

	metrics.MDNSTransactionsTotal.WithLabelValues(result.String()).Inc()
	callback(result, rec)
}

func (t *Transaction) reset() {
	t.callback = nil
	if t.listener != nil {
		t.listener.Close()
		t.listener = nil
	}
	t.timeout.Cancel()
}

// transactionListener turns listener updates into transaction results
type transactionListener struct {
	t *Transaction
}

func (a transactionListener) OnRecordUpdate(update UpdateType, rec *Record) {
	if update == RecordAdded || update == RecordChanged {
		a.t.triggerCallback(ResultRecord, rec)
	}
}

func (a transactionListener) OnNsecRecord(name string, rrtype uint16) {
	a.t.triggerCallback(ResultNsec, nil)
}

func (a transactionListener) OnCachePurged() {}
