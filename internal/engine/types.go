package engine

import "encoding/json"

// ObjectInfo is the engine's capability listing, keyed by node class name.
type ObjectInfo map[string]NodeInfo

// NodeInfo describes one node class. Required input values are left raw
// because the engine encodes enumerations as nested arrays.
type NodeInfo struct {
	Input struct {
		Required map[string]json.RawMessage `json:"required"`
	} `json:"input"`
}

// Choices extracts the enumeration options for one required input of one
// node class, e.g. the checkpoint names under CheckpointLoaderSimple's
// ckpt_name. Returns nil when the class, field, or option list is absent.
func (o ObjectInfo) Choices(class, field string) []string {
	node, ok := o[class]
	if !ok {
		return nil
	}
	raw, ok := node.Input.Required[field]
	if !ok {
		return nil
	}

	// The engine encodes an enum field as [[option, ...], {config}].
	var wrapped []json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) == 0 {
		return nil
	}
	var options []string
	if err := json.Unmarshal(wrapped[0], &options); err != nil {
		return nil
	}
	return options
}

// HistoryEntry is the engine's record of one submitted job.
type HistoryEntry struct {
	Status   HistoryStatus         `json:"status"`
	Outputs  map[string]NodeOutput `json:"outputs"`
	Progress *JobProgress          `json:"progress,omitempty"`
}

// JobProgress is the engine's fractional progress report, when present.
type JobProgress struct {
	Value float64 `json:"value"`
}

// HistoryStatus carries the engine's status string plus its message log.
type HistoryStatus struct {
	StatusStr string          `json:"status_str"`
	Completed bool            `json:"completed"`
	Messages  []StatusMessage `json:"messages"`
}

// StatusMessage is one [type, data] pair from the engine's message log.
type StatusMessage struct {
	Type string
	Data json.RawMessage
}

// UnmarshalJSON decodes the engine's heterogeneous two-element arrays.
func (m *StatusMessage) UnmarshalJSON(b []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) > 0 {
		if err := json.Unmarshal(arr[0], &m.Type); err != nil {
			return err
		}
	}
	if len(arr) > 1 {
		m.Data = arr[1]
	}
	return nil
}

// ExecutionError is the structured node-level failure detail the engine
// attaches to an execution_error message.
type ExecutionError struct {
	NodeID           string   `json:"node_id"`
	NodeType         string   `json:"node_type"`
	ExceptionType    string   `json:"exception_type"`
	ExceptionMessage string   `json:"exception_message"`
	Traceback        []string `json:"traceback"`
}

// Failed reports whether the engine recorded this job as errored.
func (e HistoryEntry) Failed() bool {
	return e.Status.StatusStr == "error"
}

// ExecutionErrors collects all node-level failures from the message log.
func (e HistoryEntry) ExecutionErrors() []ExecutionError {
	var errs []ExecutionError
	for _, msg := range e.Status.Messages {
		if msg.Type != "execution_error" {
			continue
		}
		var ee ExecutionError
		if err := json.Unmarshal(msg.Data, &ee); err == nil {
			errs = append(errs, ee)
		}
	}
	return errs
}

// OutputImages returns the images the given node produced, if any.
func (e HistoryEntry) OutputImages(nodeID string) []OutputImage {
	out, ok := e.Outputs[nodeID]
	if !ok {
		return nil
	}
	return out.Images
}

// NodeOutput is the per-node output listing.
type NodeOutput struct {
	Images []OutputImage `json:"images"`
}

// OutputImage locates a produced image in the engine's output tree.
type OutputImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}
