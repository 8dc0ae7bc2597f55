// Package backend defines the persistence collaborator the portal talks to:
// record collections, the enumeration procedure, and the attachment store.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownProcedure  = errors.New("unknown procedure")
)

// Collection names.
const (
	Actions   = "actions"
	DailyLogs = "daily_logs"
	Training  = "training"
)

// EnumProcedure returns the labels of the enumeration named by the
// "enum_name" argument.
const EnumProcedure = "get_enum_values"

// AttachmentsBucket holds files uploaded from the action form.
const AttachmentsBucket = "attachments"

// orderColumns lists, per collection, the columns a listing may sort on.
var orderColumns = map[string][]string{
	Actions:   {"date_raised", "created_at"},
	DailyLogs: {"created_at"},
	Training:  {"created_at"},
}

// CheckCollection reports whether collection is known and, when orderBy is
// non-empty, whether it may be used to sort that collection.
func CheckCollection(collection, orderBy string) error {
	cols, ok := orderColumns[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if orderBy == "" {
		return nil
	}
	for _, c := range cols {
		if c == orderBy {
			return nil
		}
	}
	return fmt.Errorf("%w: %q cannot be ordered by %q", ErrUnknownCollection, collection, orderBy)
}

// Records is CRUD over the record collections. dest for Select must be a
// pointer to a slice of the collection's record type.
type Records interface {
	Select(ctx context.Context, collection, orderBy string, descending bool, dest any) error
	Insert(ctx context.Context, collection string, record any) error
	Update(ctx context.Context, collection, id string, record any) error
	Delete(ctx context.Context, collection, id string) error
}

// Procedures runs named remote procedures returning string lists.
type Procedures interface {
	CallProcedure(ctx context.Context, name string, args map[string]any) ([]string, error)
}

// Files stores uploaded content and hands out public links to it.
type Files interface {
	UploadFile(ctx context.Context, bucket, path string, r io.Reader) error
	PublicURL(bucket, path string) string
}

// Client is the full collaborator.
type Client interface {
	Records
	Procedures
	Files
}

type composite struct {
	Records
	Procedures
	Files
}

// Compose assembles a Client from separate implementations.
func Compose(r Records, p Procedures, f Files) Client {
	return composite{Records: r, Procedures: p, Files: f}
}
