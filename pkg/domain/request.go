package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Line protocol commands
const (
	CmdInsert           = "INSERT"
	CmdUpdate           = "UPDATE"
	CmdDelete           = "DELETE"
	CmdGet              = "GET"
	CmdGetAll           = "GET_ALL"
	CmdExit             = "EXIT"
	CmdCreateCollection = "CREATE_COLLECTION"
	CmdCreateIndex      = "CREATE_INDEX"
	CmdFind             = "FIND"
	CmdListCollections  = "LIST_COLLECTIONS"
)

// Request is one line protocol command
type Request struct {
	Command    string          `json:"command"`
	Collection string          `json:"collection,omitempty"`
	ID         string          `json:"id,omitempty"`
	Document   json.RawMessage `json:"document,omitempty"`
	Field      string          `json:"field,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
}

// ParseRequest decodes one request line
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, err
	}
	req.Command = strings.ToUpper(strings.TrimSpace(req.Command))
	return &req, nil
}

// DocumentValue decodes the request's document. When the document carries
// no id of its own, the request id is used.
func (r *Request) DocumentValue() (*Document, error) {
	raw := bytes.TrimSpace(r.Document)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("document is required")
	}
	doc, err := ParseDocument(string(raw))
	if err != nil {
		return nil, err
	}
	if r.ID != "" {
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &probe); err == nil && probe.ID == "" {
			doc.id = r.ID
		}
	}
	return doc, nil
}

// ValueKey returns the request value as an index key: JSON strings are used
// raw, other values in compact JSON
func (r *Request) ValueKey() (string, error) {
	raw := bytes.TrimSpace(r.Value)
	if len(raw) == 0 {
		return "", fmt.Errorf("value is required")
	}
	v, err := ParseValue(string(raw))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}
