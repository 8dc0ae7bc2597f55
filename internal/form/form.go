// Package form implements the create/edit form shared by every record kind.
package form

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eng_portal/internal/backend"
	"eng_portal/internal/enums"
	"eng_portal/internal/records"
)

var (
	ErrRequired     = errors.New("required fields are empty")
	ErrNotAnOption  = errors.New("value is not one of the options")
	ErrInvalidField = errors.New("invalid field")
	ErrNoAttachment = errors.New("form does not take attachments")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Mode is Create or Edit(id). It is fixed when the form is mounted.
type Mode struct {
	id string
}

// Create is the mode of a form building a new record.
func Create() Mode { return Mode{} }

// Edit is the mode of a form updating the record with id.
func Edit(id string) Mode { return Mode{id: id} }

// IsEdit reports whether the form updates an existing record.
func (m Mode) IsEdit() bool { return m.id != "" }

// ID is the record being edited, or "" in Create mode.
func (m Mode) ID() string { return m.id }

func (m Mode) String() string {
	if m.IsEdit() {
		return "edit(" + m.id + ")"
	}
	return "create"
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if m.IsEdit() {
		return json.Marshal(struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		}{"edit", m.id})
	}
	return []byte(`{"kind":"create"}`), nil
}

// State is a snapshot of a form.
type State[T any] struct {
	Mode    Mode              `json:"mode"`
	Title   string            `json:"title"`
	Badge   string            `json:"badge"`
	Record  T                 `json:"record"`
	Options enums.Options     `json:"options"`
	Selects map[string]string `json:"selects"`
}

// Form holds one record being created or edited.
type Form[T any] struct {
	kind       records.Kind[T]
	client     backend.Client
	logger     *zap.Logger
	mode       Mode
	onComplete func()
	fields     map[string]bool

	// Now is the clock used for defaults.
	Now func() time.Time

	mu      sync.Mutex
	record  T
	options enums.Options
}

// New mounts a form. A non-nil initial record with an id puts the form in
// Edit mode; otherwise it starts from the kind's defaults. The kind's
// enumerations are loaded before New returns.
func New[T any](ctx context.Context, kind records.Kind[T], client backend.Client, logger *zap.Logger, initial *T, onComplete func()) *Form[T] {
	f := &Form[T]{
		kind:       kind,
		client:     client,
		logger:     logger.With(zap.String("form", kind.Name)),
		onComplete: onComplete,
		fields:     jsonFields(reflect.TypeFor[T]()),
		Now:        time.Now,
	}
	if initial != nil && kind.ID(initial) != "" {
		f.mode = Edit(kind.ID(initial))
		f.record = *initial
	} else {
		f.mode = Create()
		f.record = kind.Defaults(f.Now())
	}
	f.options = enums.Load(ctx, client, f.logger, kind.Enums()...)
	return f
}

func (f *Form[T]) Mode() Mode { return f.mode }

// Record returns a copy of the current record.
func (f *Form[T]) Record() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record
}

func (f *Form[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := State[T]{
		Mode:    f.mode,
		Title:   f.kind.Messages.FormTitle,
		Badge:   f.kind.Messages.FormBadge,
		Record:  f.record,
		Options: make(enums.Options, len(f.options)),
		Selects: f.kind.Selects,
	}
	if f.mode.IsEdit() {
		st.Title = f.kind.Messages.EditTitle
		st.Badge = f.kind.Messages.EditBadge
	}
	for name, values := range f.options {
		st.Options[name] = values
	}
	return st
}

// SetField sets one field, named as in the record's JSON form.
func (f *Form[T]) SetField(name string, value json.RawMessage) error {
	return f.SetFields(map[string]json.RawMessage{name: value})
}

// SetFields sets several fields at once. Either every field is applied or
// none is.
func (f *Form[T]) SetFields(values map[string]json.RawMessage) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.record
	for _, name := range names {
		if err := f.apply(&rec, name, values[name]); err != nil {
			return err
		}
	}
	f.record = rec
	return nil
}

func (f *Form[T]) apply(rec *T, name string, value json.RawMessage) error {
	if name == "id" || name == "created_at" || !f.fields[name] {
		return fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
	// Decoding null into the record would silently keep the old value.
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return fmt.Errorf("%w: %q cannot be null", ErrInvalidField, name)
	}
	if enum, ok := f.kind.Selects[name]; ok {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("%w: %q must be a string", ErrInvalidField, name)
		}
		if !f.options.Allows(enum, s) {
			return fmt.Errorf("%w: %q for %s", ErrNotAnOption, s, name)
		}
	}
	payload, err := json.Marshal(map[string]json.RawMessage{name: value})
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidField, name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rec); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidField, name, err)
	}
	return nil
}

// Submit saves the record: Update in Edit mode, Insert in Create mode. On
// failure the record is left as it was. On success onComplete is called if
// set, otherwise the form resets to the kind's defaults. The returned string
// is the message shown to the user.
func (f *Form[T]) Submit(ctx context.Context) (string, error) {
	rec := f.Record()
	if err := check(rec); err != nil {
		return "", err
	}

	var err error
	msg := f.kind.Messages.Created
	if f.mode.IsEdit() {
		msg = f.kind.Messages.Updated
		err = f.client.Update(ctx, f.kind.Collection, f.mode.ID(), rec)
	} else {
		err = f.client.Insert(ctx, f.kind.Collection, rec)
	}
	if err != nil {
		f.logger.Error("failed to save record", zap.Stringer("mode", f.mode), zap.Error(err))
		return "", fmt.Errorf("failed to save %s: %w", f.kind.Name, err)
	}
	f.logger.Info("record saved", zap.Stringer("mode", f.mode))

	f.finish()
	return msg, nil
}

// Cancel leaves the form: onComplete if set, otherwise a reset.
func (f *Form[T]) Cancel() {
	f.finish()
}

func (f *Form[T]) finish() {
	if f.onComplete != nil {
		f.onComplete()
		return
	}
	f.Reset()
}

// Reset restores the kind's defaults.
func (f *Form[T]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record = f.kind.Defaults(f.Now())
}

// Attach uploads a file to the attachments bucket under a random name that
// keeps filename's extension, and stores its public URL on the record.
func (f *Form[T]) Attach(ctx context.Context, filename string, r io.Reader) (string, error) {
	field := f.kind.AttachmentField
	if field == "" {
		return "", ErrNoAttachment
	}
	path := f.kind.Collection + "/" + uuid.NewString() + filepath.Ext(filename)
	if err := f.client.UploadFile(ctx, backend.AttachmentsBucket, path, r); err != nil {
		f.logger.Error("failed to upload attachment", zap.String("filename", filename), zap.Error(err))
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	url := f.client.PublicURL(backend.AttachmentsBucket, path)

	value, err := json.Marshal(url)
	if err != nil {
		return "", err
	}
	if err := f.SetField(field, value); err != nil {
		return "", err
	}
	f.logger.Info("attachment uploaded", zap.String("path", path))
	return url, nil
}

// check runs the record's validate tags.
func check(rec any) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	var required, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			required = append(required, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(required) > 0 {
		return fmt.Errorf("%w: %s", ErrRequired, strings.Join(required, ", "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidField, strings.Join(invalid, ", "))
}

func jsonFields(t reflect.Type) map[string]bool {
	fields := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			fields[name] = true
		}
	}
	return fields
}
