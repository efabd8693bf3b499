package llm

import "context"

// MockProvider is a test double for Provider. Responses are returned in
// order; once exhausted the last configured response repeats. If Err is set
// every call fails with it.
type MockProvider struct {
	Responses []string
	Err       error

	// Requests records every request received, in order.
	Requests []Request

	next int
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, req Request) (string, error) {
	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}

	resp := m.Responses[m.next]
	if m.next < len(m.Responses)-1 {
		m.next++
	}
	return resp, nil
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	return "mock"
}
