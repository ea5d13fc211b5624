package models

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateChannel checks a channel descriptor before it is persisted.
func ValidateChannel(c *Channel) error {
	if c == nil {
		return fmt.Errorf("invalid channel: nil")
	}
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("invalid channel %q: %w", c.Link, err)
	}
	return nil
}

// ValidateArticles checks a whole crawl batch. The batch is rejected on the
// first invalid article.
func ValidateArticles(articles []Article) error {
	v := validatorInstance()
	for i := range articles {
		if err := v.Struct(&articles[i]); err != nil {
			return fmt.Errorf("invalid article %d (%q): %w", i, articles[i].Link, err)
		}
	}
	return nil
}
