package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/naming"
	"github.com/marmos91/pushstore/pkg/provision"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// structValidator returns the shared validator. Field paths in errors use
// the yaml key names so they match what the user wrote.
func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
		validatorInst.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validatorInst
}

// Validate checks cfg for structural errors (struct tags) and for
// consistency between sections:
//   - server names and datasource JNDI names are unique
//   - every datastore type is a known backend kind and its attributes are
//     complete and valid for that kind
//   - every JPA datastore references a configured datasource
//
// Validate does not normalize cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	binders := make(map[string]string, len(cfg.Datasources))
	for i := range cfg.Datasources {
		ds := &cfg.Datasources[i]
		if err := ds.Validate(); err != nil {
			return err
		}
		info := naming.BindInfoFor(ds.JNDIName)
		if !info.Valid() {
			return fmt.Errorf("datasource %q: invalid JNDI name", ds.JNDIName)
		}
		key := info.BinderServiceName().String()
		if prev, ok := binders[key]; ok {
			return fmt.Errorf("datasource %q: duplicates %q", ds.JNDIName, prev)
		}
		binders[key] = ds.JNDIName
	}

	seen := make(map[string]struct{}, len(cfg.Servers))
	for _, srv := range cfg.Servers {
		if _, ok := seen[srv.Name]; ok {
			return fmt.Errorf("server %q: duplicate name", srv.Name)
		}
		seen[srv.Name] = struct{}{}

		backend, err := srv.Backend()
		if err != nil {
			return fmt.Errorf("server %q: %w", srv.Name, err)
		}
		if jpa, ok := backend.(provision.JPABackend); ok {
			key := naming.BindInfoFor(jpa.DatasourceReference).BinderServiceName().String()
			if _, ok := binders[key]; !ok {
				return fmt.Errorf("server %q: datasource %q is not configured", srv.Name, jpa.DatasourceReference)
			}
		}
	}

	return nil
}

// Backend classifies and extracts the datastore of s the same way the
// provisioning engine does.
func (s ServerConfig) Backend() (provision.Backend, error) {
	kind, err := datastore.ParseKind(s.Datastore.Type)
	if err != nil {
		return nil, err
	}
	return provision.ExtractBackend(kind, provision.AttributesFromMap(s.Datastore.Attributes))
}

// Operation returns the provisioning operation for s.
func (s ServerConfig) Operation() provision.Operation {
	return provision.Operation{
		Address:    provision.DatastoreAddress(s.Name, s.Datastore.Type),
		Attributes: provision.AttributesFromMap(s.Datastore.Attributes),
	}
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the root struct name.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		msg := fmt.Sprintf("%s: failed '%s' validation", path, fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
