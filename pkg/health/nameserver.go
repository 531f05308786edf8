package health

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// Exchanger sends a message to one configured nameserver. *dns.Client
// from pkg/dns implements it.
type Exchanger interface {
	Exchange(ctx context.Context, msg *dns.Msg, serverIndex int) (*dns.Msg, error)
}

// NameserverChecker checks a nameserver with a single query
type NameserverChecker struct {
	client      Exchanger
	serverIndex int

	// QuestionName and QuestionType form the query (default: ". NS")
	QuestionName string
	QuestionType uint16
}

// NewNameserverChecker creates a checker for the server at serverIndex
func NewNameserverChecker(client Exchanger, serverIndex int) *NameserverChecker {
	return &NameserverChecker{
		client:       client,
		serverIndex:  serverIndex,
		QuestionName: ".",
		QuestionType: dns.TypeNS,
	}
}

// Check sends the question. Any reply other than SERVFAIL or REFUSED counts
// as healthy.
func (n *NameserverChecker) Check(ctx context.Context) Result {
	start := time.Now()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(n.QuestionName), n.QuestionType)
	msg.RecursionDesired = true

	resp, err := n.client.Exchange(ctx, msg, n.serverIndex)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("query failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	rcode := dns.RcodeToString[resp.Rcode]
	if resp.Rcode == dns.RcodeServerFailure || resp.Rcode == dns.RcodeRefused {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("server answered %s", rcode),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("server answered %s", rcode),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type
func (n *NameserverChecker) Type() CheckType {
	return CheckTypeNameserver
}

// WithQuestion sets the question sent to the server
func (n *NameserverChecker) WithQuestion(name string, qtype uint16) *NameserverChecker {
	n.QuestionName = name
	n.QuestionType = qtype
	return n
}
