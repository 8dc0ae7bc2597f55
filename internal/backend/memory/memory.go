// Package memory is an in-process backend.Client used for local runs and tests.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"eng_portal/internal/backend"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultEnums seeds the enumerations when none are supplied.
var DefaultEnums = map[string][]string{
	"staff_name":           {"Devesh Naidoo", "Thandi Mokoena", "Pieter van Wyk", "Ayesha Khan"},
	"priority_level":       {"Low", "Medium", "High", "Urgent"},
	"action_status":        {"Open", "In Progress", "On Hold", "Complete", "Closed"},
	"plant_area_type":      {"Boiler House", "Packing Hall", "Compressor Room", "Workshop"},
	"equipment_type":       {"Boiler", "Compressor", "Conveyor", "Chiller", "Pump"},
	"dept_name":            {"Engineering", "Production", "Quality", "SHEQ"},
	"discipline_type":      {"Mechanical", "Electrical", "Instrumentation", "Civil"},
	"contractor_name":      {"Acme Electrical", "Delta Mechanical"},
	"aspect_type":          {"Safety", "Quality", "Reliability", "Environmental"},
	"source_type":          {"Audit", "Breakdown", "Inspection", "Meeting"},
	"training_aspect_type": {"Safety", "Technical", "Compliance"},
	"training_method_type": {"Classroom", "On The Job", "E-Learning"},
	"test_type":            {"Written", "Practical", "Observation"},
}

type row struct {
	seq  int64
	data map[string]any
}

// Client keeps every collection, enumeration and uploaded file in memory.
type Client struct {
	mu      sync.Mutex
	seq     int64
	rows    map[string][]*row
	enums   map[string][]string
	files   map[string][]byte
	baseURL string
	now     func() time.Time
	fail    map[string]error
}

var _ backend.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEnums replaces the seeded enumerations.
func WithEnums(e map[string][]string) Option {
	return func(c *Client) { c.enums = e }
}

// WithClock sets the source of created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithPublicURL sets the base of URLs returned by PublicURL.
func WithPublicURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// New returns an empty Client.
func New(opts ...Option) *Client {
	c := &Client{
		rows:    map[string][]*row{},
		enums:   DefaultEnums,
		files:   map[string][]byte{},
		baseURL: "http://localhost/files",
		now:     time.Now,
		fail:    map[string]error{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fail makes every later call of op return err until cleared with a nil err.
// op is one of select, insert, update, delete, upload, or "enum:<name>".
func (c *Client) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, op)
		return
	}
	c.fail[op] = err
}

// Len returns the number of rows in collection.
func (c *Client) Len(collection string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows[collection])
}

// File returns an uploaded file's content.
func (c *Client) File(bucket, path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.files[bucket+"/"+path]
	return b, ok
}

func (c *Client) Select(_ context.Context, collection, orderBy string, descending bool, dest any) error {
	if err := backend.CheckCollection(collection, orderBy); err != nil {
		return err
	}
	c.mu.Lock()
	if err := c.fail["select"]; err != nil {
		c.mu.Unlock()
		return err
	}
	rows := append([]*row(nil), c.rows[collection]...)
	c.mu.Unlock()

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := sortKey(rows[i].data[orderBy]), sortKey(rows[j].data[orderBy])
		if descending {
			if a == b {
				return rows[i].seq > rows[j].seq
			}
			return a > b
		}
		if a == b {
			return rows[i].seq < rows[j].seq
		}
		return a < b
	})

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.data)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode %s rows: %w", collection, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", collection, err)
	}
	return nil
}

func (c *Client) Insert(_ context.Context, collection string, record any) error {
	if err := backend.CheckCollection(collection, ""); err != nil {
		return err
	}
	data, err := toMap(record)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail["insert"]; err != nil {
		return err
	}
	c.seq++
	data["id"] = uuid.NewString()
	data["created_at"] = c.now().UTC().Format(timeLayout)
	c.rows[collection] = append(c.rows[collection], &row{seq: c.seq, data: data})
	return nil
}

func (c *Client) Update(_ context.Context, collection, id string, record any) error {
	if err := backend.CheckCollection(collection, ""); err != nil {
		return err
	}
	data, err := toMap(record)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail["update"]; err != nil {
		return err
	}
	for _, r := range c.rows[collection] {
		if r.data["id"] == id {
			for k, v := range data {
				r.data[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s", backend.ErrNotFound, collection, id)
}

func (c *Client) Delete(_ context.Context, collection, id string) error {
	if err := backend.CheckCollection(collection, ""); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail["delete"]; err != nil {
		return err
	}
	rows := c.rows[collection]
	for i, r := range rows {
		if r.data["id"] == id {
			c.rows[collection] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s", backend.ErrNotFound, collection, id)
}

func (c *Client) CallProcedure(_ context.Context, name string, args map[string]any) ([]string, error) {
	if name != backend.EnumProcedure {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownProcedure, name)
	}
	enum, _ := args["enum_name"].(string)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail["enum:"+enum]; err != nil {
		return nil, err
	}
	values, ok := c.enums[enum]
	if !ok {
		return nil, fmt.Errorf("type %q does not exist", enum)
	}
	return append([]string(nil), values...), nil
}

func (c *Client) UploadFile(_ context.Context, bucket, path string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail["upload"]; err != nil {
		return err
	}
	c.files[bucket+"/"+path] = buf.Bytes()
	return nil
}

func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/" + bucket + "/" + path
}

// toMap converts a record to its JSON field map, dropping backend-assigned
// fields.
func toMap(record any) (map[string]any, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	delete(m, "id")
	delete(m, "created_at")
	return m, nil
}

func sortKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
