package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for tests and the "mock"
// provider setting. Responses can be routed to a schema name with Respond;
// requests for schemas without a route consume the shared FIFO queue.
// Canned content goes through the same normalization and validation as
// real provider output.
type MockProvider struct {
	mu       sync.Mutex
	queue    []MockResponse
	bySchema map[string][]MockResponse
	Calls    []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{queue: responses, bySchema: map[string][]MockResponse{}}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	resp, ok := m.next(req.Schema)
	if !ok {
		name := "(none)"
		if req.Schema != nil {
			name = req.Schema.Name
		}
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("mock has no response for schema %s", name)}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	content, err := validateResponse(req.Schema, resp.Content)
	if err != nil {
		return nil, err
	}
	usage := resp.Usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: "mock", StopReason: "end"}, nil
}

// next pops the routed response for the schema, falling back to the queue.
func (m *MockProvider) next(schema *Schema) (MockResponse, bool) {
	if schema != nil {
		if routed := m.bySchema[schema.Name]; len(routed) > 0 {
			m.bySchema[schema.Name] = routed[1:]
			return routed[0], true
		}
	}
	if len(m.queue) == 0 {
		return MockResponse{}, false
	}
	resp := m.queue[0]
	m.queue = m.queue[1:]
	return resp, true
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the shared queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

// Respond routes responses to requests carrying the named schema.
func (m *MockProvider) Respond(schemaName string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySchema[schemaName] = append(m.bySchema[schemaName], responses...)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CallsFor returns the recorded requests that carried the named schema.
func (m *MockProvider) CallsFor(schemaName string) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, c := range m.Calls {
		if c.Schema != nil && c.Schema.Name == schemaName {
			out = append(out, c)
		}
	}
	return out
}

// Pending returns the number of canned responses not yet consumed.
func (m *MockProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.queue)
	for _, routed := range m.bySchema {
		n += len(routed)
	}
	return n
}
