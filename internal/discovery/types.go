package discovery

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sampler delegates a prompt to the connected client's own model.
type Sampler interface {
	// SupportsSampling reports whether the client behind ctx accepts
	// sampling requests.
	SupportsSampling(ctx context.Context) bool

	// CreateMessage sends exactly one sampling request.
	CreateMessage(ctx context.Context, prompt string, maxTokens int) (Response, error)
}

// ContentItem is one content block of a sampling response.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Response is the content of a sampling response: either a single item or
// a list of items. Exactly one of the two is set.
type Response struct {
	single *ContentItem
	list   []ContentItem
}

// SingleItem builds a single-item response.
func SingleItem(item ContentItem) Response {
	return Response{single: &item}
}

// ItemList builds a list response.
func ItemList(items []ContentItem) Response {
	return Response{list: items}
}

// FirstText returns the first text item at either depth.
func (r Response) FirstText() (string, bool) {
	if r.single != nil {
		if r.single.Type == "text" {
			return r.single.Text, true
		}
		return "", false
	}
	for _, item := range r.list {
		if item.Type == "text" {
			return item.Text, true
		}
	}
	return "", false
}

// DecodeContent decodes raw sampling content that may be an object or an
// array of objects.
func DecodeContent(raw json.RawMessage) (Response, error) {
	var list []ContentItem
	if err := json.Unmarshal(raw, &list); err == nil {
		return ItemList(list), nil
	}
	var item ContentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Response{}, fmt.Errorf("unrecognized sampling content: %w", err)
	}
	return SingleItem(item), nil
}

// Outcome is the caller-visible result of a discovery request.
type Outcome struct {
	Message string
	IsError bool
	// Activated lists the workflows selected and activated, if any.
	Activated []string
}
