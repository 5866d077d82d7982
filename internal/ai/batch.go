package ai

import "context"

// BatchRequest is one logical unit of a bulk submission, identified by the
// caller-chosen CustomID so results can be matched back after the batch ends.
type BatchRequest struct {
	CustomID     string
	SystemPrompt string
	UserPrompt   string
}

// RequestCounts mirrors the provider's per-batch accounting.
type RequestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

func (c RequestCounts) Total() int {
	return c.Processing + c.Succeeded + c.Errored + c.Canceled + c.Expired
}

// BatchStatus is the provider's view of one batch. Status uses the provider
// vocabulary (in_progress, canceling, ended); the batch tracker maps it onto
// the local job enum.
type BatchStatus struct {
	BatchID       string
	Status        string
	RequestCounts RequestCounts
	ResultsURL    string
}

// BatchResult is one per-request outcome from the results payload.
type BatchResult struct {
	CustomID string
	Type     string // succeeded, errored, canceled, expired
	Text     string
	Error    string
}

// BatchAPI wraps the provider's asynchronous bulk endpoint: submit, poll,
// fetch results, cancel.
type BatchAPI interface {
	SubmitBatch(ctx context.Context, requests []BatchRequest) (string, error)
	GetBatchStatus(ctx context.Context, batchID string) (*BatchStatus, error)
	FetchResults(ctx context.Context, resultsURL string) ([]BatchResult, error)
	CancelBatch(ctx context.Context, batchID string) error
	ListBatches(ctx context.Context, limit int) ([]BatchStatus, error)
}

// Extraction is the parsed form of one BatchResult.
type Extraction struct {
	Success  bool
	CustomID string
	Data     map[string]any
	Error    string
}

// ExtractContent parses a result's text into a JSON object. Non-succeeded
// results and unparsable text come back as failed extractions rather than
// errors so one bad item never aborts an import loop.
func ExtractContent(res BatchResult) Extraction {
	if res.Type != "succeeded" {
		msg := res.Error
		if msg == "" {
			msg = "request " + res.Type
		}
		return Extraction{CustomID: res.CustomID, Error: msg}
	}
	data, err := ExtractJSONObject(res.Text)
	if err != nil {
		return Extraction{CustomID: res.CustomID, Error: err.Error()}
	}
	return Extraction{Success: true, CustomID: res.CustomID, Data: data}
}
