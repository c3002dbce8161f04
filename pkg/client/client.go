package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// DefaultTimeout bounds dialing and each request round trip
const DefaultTimeout = 10 * time.Second

// Response is a decoded server reply. Data is left raw so callers decode
// it into whatever the command returns.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Err returns nil for a successful response and the server message otherwise
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.Message)
}

// Document decodes Data as a single document
func (r *Response) Document() (*domain.Document, error) {
	if len(r.Data) == 0 {
		return nil, fmt.Errorf("response carries no document")
	}
	return domain.ParseDocument(string(r.Data))
}

// Documents decodes Data as a document list
func (r *Response) Documents() ([]*domain.Document, error) {
	var docs []*domain.Document
	if len(r.Data) == 0 {
		return docs, nil
	}
	if err := json.Unmarshal(r.Data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// Client speaks the line protocol over one TCP connection. Requests are
// serialized; a Client is safe for concurrent use.
type Client struct {
	conn    net.Conn
	timeout time.Duration

	mu     sync.Mutex
	reader *bufio.Reader
	writer *bufio.Writer
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the dial and round trip timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Dial connects to a server
func Dial(addr string, options ...Option) (*Client, error) {
	c := &Client{timeout: DefaultTimeout}
	for _, option := range options {
		option(c)
	}

	conn, err := net.DialTimeout("tcp", addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.writer = bufio.NewWriter(conn)
	return c, nil
}

// Do sends one request and waits for its response
func (c *Client) Do(req *domain.Request) (*Response, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
	}
	if _, err := c.writer.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reply, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Insert stores a new document
func (c *Client) Insert(collection string, doc *domain.Document) (*Response, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return c.Do(&domain.Request{Command: domain.CmdInsert, Collection: collection, Document: raw})
}

// Update replaces the data of an existing document
func (c *Client) Update(collection string, doc *domain.Document) (*Response, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return c.Do(&domain.Request{Command: domain.CmdUpdate, Collection: collection, Document: raw})
}

func (c *Client) Delete(collection, id string) (*Response, error) {
	return c.Do(&domain.Request{Command: domain.CmdDelete, Collection: collection, ID: id})
}

func (c *Client) Get(collection, id string) (*Response, error) {
	return c.Do(&domain.Request{Command: domain.CmdGet, Collection: collection, ID: id})
}

func (c *Client) GetAll(collection string) (*Response, error) {
	return c.Do(&domain.Request{Command: domain.CmdGetAll, Collection: collection})
}

func (c *Client) CreateCollection(collection string) (*Response, error) {
	return c.Do(&domain.Request{Command: domain.CmdCreateCollection, Collection: collection})
}

func (c *Client) CreateIndex(collection, field string) (*Response, error) {
	return c.Do(&domain.Request{Command: domain.CmdCreateIndex, Collection: collection, Field: field})
}

// Find returns the documents whose field equals value. Strings match raw
// field strings; other values match by their JSON text.
func (c *Client) Find(collection, field string, value interface{}) (*Response, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return c.Do(&domain.Request{Command: domain.CmdFind, Collection: collection, Field: field, Value: raw})
}

// ListCollections returns the collection names
func (c *Client) ListCollections() ([]string, error) {
	resp, err := c.Do(&domain.Request{Command: domain.CmdListCollections})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(resp.Data, &names); err != nil {
		return nil, fmt.Errorf("failed to decode collections: %w", err)
	}
	return names, nil
}

// Close says goodbye and closes the connection. The goodbye is best effort.
func (c *Client) Close() error {
	_, _ = c.Do(&domain.Request{Command: domain.CmdExit})
	return c.conn.Close()
}
