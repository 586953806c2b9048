package settlement

import "github.com/shopspring/decimal"

// FlowDirection says which way money moves when an invoice is settled.
// The sign is carried on the type so balance updates never infer it.
type FlowDirection string

const (
	// FlowToCustomer is a standard invoice billed to a customer; payments are incoming
	FlowToCustomer FlowDirection = "to_customer"
	// FlowToAgent is an invoice billed to a partner agent; payments are incoming
	FlowToAgent FlowDirection = "to_agent"
	// FlowFromAgent is money owed to an agent; payments are outgoing transfers
	FlowFromAgent FlowDirection = "from_agent"
)

// IsValid checks if the direction is known
func (d FlowDirection) IsValid() bool {
	switch d {
	case FlowToCustomer, FlowToAgent, FlowFromAgent:
		return true
	}
	return false
}

// IsOutgoing reports whether settling the invoice pays money out
func (d FlowDirection) IsOutgoing() bool {
	return d == FlowFromAgent
}

// Sign returns +1 for incoming flows and -1 for outgoing flows
func (d FlowDirection) Sign() decimal.Decimal {
	if d.IsOutgoing() {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// String returns the string representation
func (d FlowDirection) String() string {
	return string(d)
}
