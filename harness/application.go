package harness

import (
	"github.com/dshills/stormtest/platform/app"
)

// ApplicationRule ensures the shared application is booted before each
// test and resets persisted virtual-file-system state so no test observes
// content cached by a previous one.
//
// The application itself is shared across the whole process; the rule
// never shuts it down. Call app.ShutDown from TestMain when the suite is
// done.
type ApplicationRule struct {
	opts app.Options
}

// NewApplicationRule creates the rule with headless boot options.
func NewApplicationRule() *ApplicationRule {
	return &ApplicationRule{opts: app.Options{Headless: true}}
}

// NewApplicationRuleWith creates the rule with explicit boot options, for
// suites that run against an in-memory file system or a custom logger.
func NewApplicationRuleWith(opts app.Options) *ApplicationRule {
	return &ApplicationRule{opts: opts}
}

// Apply implements Rule.
func (r *ApplicationRule) Apply(next Statement, d Description) Statement {
	return func() error {
		a, err := app.GetOrBoot(r.opts)
		if err != nil {
			return err
		}
		a.Snapshot().Clear()
		return next()
	}
}
