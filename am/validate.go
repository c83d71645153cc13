package am

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/source"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration is complete and consistent. The
// returned error wraps errors.ErrInvalidConfig and joins every problem found.
func (c *Config) Validate() error {
	var problems []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Mark(errors.Wrap(err, "validate config"), errors.ErrInvalidConfig)
		}
		for _, fe := range verrs {
			problems = append(problems, errors.New(describe(fe)))
		}
	}

	if c.Storage.Driver != DriverSQLite && c.Storage.DSN == "" {
		problems = append(problems, errors.Newf("storage.dsn is required for driver %q", c.Storage.Driver))
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			continue
		}
		if seen[cat.Name] {
			problems = append(problems, errors.Newf("categories: duplicate name %q", cat.Name))
		}
		seen[cat.Name] = true
	}
	problems = append(problems, sharedRepositories(c.Categories)...)

	if len(problems) == 0 {
		return nil
	}
	err := errors.Mark(errors.Join(problems...), errors.ErrInvalidConfig)
	if len(c.Categories) == 0 {
		err = errors.WithHint(err, "add a [[categories]] table, or set INTERNSHIP_WEBHOOK_URL / NEW_GRAD_WEBHOOK_URL")
	}
	return err
}

// sharedRepositories reports repositories configured more than once. Snapshots
// and alert history are keyed by repository slug, so a second occurrence would
// diff against the first one's snapshot and never announce anything.
func sharedRepositories(categories []CategoryConfig) []error {
	var problems []error
	owner := make(map[string]string)
	for _, cat := range categories {
		for _, raw := range cat.Repositories {
			repo, err := source.ParseRepository(raw, "")
			if err != nil {
				continue // reported by the url rule or when building categories
			}
			slug := strings.ToLower(repo.Slug)
			if first, dup := owner[slug]; dup {
				problems = append(problems, errors.WithHint(
					errors.Newf("categories[%s].repositories: %s is already watched by category %q", cat.Name, repo.Slug, first),
					"list each repository in one category only"))
				continue
			}
			owner[slug] = cat.Name
		}
	}
	return problems
}

// describe renders a validation failure with the config key path, e.g.
// "categories[0].discord.webhook_url: required".
func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:] // drop the root struct name
	}
	switch fe.Tag() {
	case "required":
		return key + ": required"
	case "min":
		return fmt.Sprintf("%s: needs at least %s entries", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "url":
		return fmt.Sprintf("%s: not a URL: %q", key, fmt.Sprint(fe.Value()))
	case "gt", "gte":
		return fmt.Sprintf("%s: must be %s %s, got %v", key, map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s: failed %q", key, fe.Tag())
	}
}
