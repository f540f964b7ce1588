package providers

import (
	"fmt"
	"strings"

	"github.com/gookit/validate"

	"gmd/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}

	// Cross-field rules validate tags cannot express.
	if cv.conf.Webhook.Enabled && cv.conf.Webhook.Secret == "" {
		return fmt.Errorf("invalid config: webhook.secret is required when webhooks are enabled")
	}
	if url := cv.conf.Webhook.PublicURL; url != "" && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("invalid config: webhook.publicUrl must be https, got %s", url)
	}
	if !strings.Contains(cv.conf.Ghost.AdminAPIKey, ":") {
		return fmt.Errorf("invalid config: ghost.adminApiKey must be of form id:secret")
	}

	return nil
}
