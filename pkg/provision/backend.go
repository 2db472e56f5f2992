package provision

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/naming"
)

// Attribute names.
const (
	AttrDatasourceReference = "datasource-reference"
	AttrPersistenceUnit     = "persistence-unit"
	AttrHost                = "host"
	AttrPort                = "port"
	AttrURL                 = "url"
	AttrDatabaseName        = "database-name"
)

// Backend is the validated, kind-specific configuration of a datastore. It
// is one of JPABackend, RedisBackend, DocumentStoreBackend or
// InMemoryBackend.
type Backend interface {
	Kind() datastore.Kind
	isBackend()
}

// JPABackend stores data through a persistence unit over a datasource.
type JPABackend struct {
	DatasourceReference string `mapstructure:"datasource-reference" json:"datasource-reference" validate:"required,jndiname"`
	PersistenceUnit     string `mapstructure:"persistence-unit" json:"persistence-unit" validate:"required,tableprefix"`
}

// RedisBackend stores data in a Redis server.
type RedisBackend struct {
	Host string `mapstructure:"host" json:"host" validate:"required,hostname_rfc1123|ip"`
	Port int    `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
}

// DocumentStoreBackend stores data in a CouchDB database.
type DocumentStoreBackend struct {
	URL          string `mapstructure:"url" json:"url" validate:"required,http_url"`
	DatabaseName string `mapstructure:"database-name" json:"database-name" validate:"required"`
}

// InMemoryBackend keeps data in process memory. It has no attributes.
type InMemoryBackend struct{}

func (JPABackend) Kind() datastore.Kind           { return datastore.KindJPA }
func (RedisBackend) Kind() datastore.Kind         { return datastore.KindRedis }
func (DocumentStoreBackend) Kind() datastore.Kind { return datastore.KindDocumentStore }
func (InMemoryBackend) Kind() datastore.Kind      { return datastore.KindInMemory }

func (JPABackend) isBackend()           {}
func (RedisBackend) isBackend()         {}
func (DocumentStoreBackend) isBackend() {}
func (InMemoryBackend) isBackend()      {}

// RequiredAttributes returns the attribute names kind needs, in the order
// they are checked.
func RequiredAttributes(kind datastore.Kind) []string {
	switch kind {
	case datastore.KindJPA:
		return []string{AttrDatasourceReference, AttrPersistenceUnit}
	case datastore.KindRedis:
		return []string{AttrHost, AttrPort}
	case datastore.KindDocumentStore:
		return []string{AttrURL, AttrDatabaseName}
	default:
		return nil
	}
}

// ExtractBackend reads the attributes of kind from attrs and validates
// them. Attributes that do not belong to kind are ignored. Absent required
// attributes yield ErrMissingAttribute; present but unusable ones yield
// ErrInvalidAttribute.
func ExtractBackend(kind datastore.Kind, attrs *Attributes) (Backend, error) {
	var target Backend
	switch kind {
	case datastore.KindJPA:
		target = &JPABackend{}
	case datastore.KindRedis:
		target = &RedisBackend{}
	case datastore.KindDocumentStore:
		target = &DocumentStoreBackend{}
	case datastore.KindInMemory:
		return InMemoryBackend{}, nil
	default:
		return nil, &datastore.UnknownKindError{Discriminator: kind.String()}
	}

	for _, name := range RequiredAttributes(kind) {
		value, ok := attrs.Get(name)
		if !ok {
			return nil, missing(kind, name)
		}
		if err := decodeAttribute(name, value, target); err != nil {
			return nil, invalid(kind, name, err)
		}
	}

	if err := validate().Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, invalid(kind, fe.Field(), fmt.Errorf("failed %q constraint", fe.Tag()))
		}
		return nil, err
	}

	// Dereference so callers switch on value types.
	return reflect.ValueOf(target).Elem().Interface().(Backend), nil
}

// decodeAttribute decodes a single attribute into the matching field of
// target. Values are already typed; no string coercion is performed.
func decodeAttribute(name string, value any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: rejectFractionalHook,
		Result:     target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any{name: value}); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) && len(merr.Errors) > 0 {
			return errors.New(merr.Errors[0])
		}
		return err
	}
	return nil
}

// rejectFractionalHook refuses to truncate non-integral floats into
// integer fields.
func rejectFractionalHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	if k := from.Kind(); k == reflect.Float32 || k == reflect.Float64 {
		if f := reflect.ValueOf(data).Float(); f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", data)
		}
	}
	return data, nil
}

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

var (
	validateOnce sync.Once
	validateInst *validator.Validate
)

// validate returns the shared validator. Field names in errors are the
// attribute names from the mapstructure tags.
func validate() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			return name
		})
		_ = v.RegisterValidation("tableprefix", func(fl validator.FieldLevel) bool {
			return tablePrefixPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("jndiname", func(fl validator.FieldLevel) bool {
			return naming.BindInfoFor(fl.Field().String()).Valid()
		})
		validateInst = v
	})
	return validateInst
}
