package hooks

import (
	"fmt"
	"regexp"

	"github.com/osi4iot/hookrelay/internal/config"
	"github.com/osi4iot/hookrelay/internal/security"
)

// ValidateHookConfig validates the entire hook configuration
func ValidateHookConfig(cfg *HookConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil configuration")
	}

	for event, matchers := range cfg.Hooks {
		if !event.IsValid() {
			return fmt.Errorf("invalid event: %s", event)
		}

		for i, matcher := range matchers {
			if matcher.Matcher != "" && matcher.Matcher != "*" {
				if _, err := regexp.Compile(matcher.Matcher); err != nil {
					return fmt.Errorf("invalid regex pattern in matcher %d for event %s: %w", i, event, err)
				}
			}

			if matcher.Merge != "" && matcher.Merge != "replace" {
				return fmt.Errorf("unknown _merge strategy %q in matcher %d for event %s", matcher.Merge, i, event)
			}

			if len(matcher.Hooks) == 0 {
				return fmt.Errorf("no hooks defined for matcher %d in event %s", i, event)
			}

			for j, hook := range matcher.Hooks {
				if err := validateHookEntry(hook); err != nil {
					return fmt.Errorf("invalid hook %d in matcher %d for event %s: %w", j, i, event, err)
				}
			}
		}
	}

	return nil
}

// validateHookEntry validates a single hook entry
func validateHookEntry(hook HookEntry) error {
	if hook.Type != "command" {
		return fmt.Errorf("invalid hook type: %s (only 'command' is supported)", hook.Type)
	}

	if err := security.CheckHookCommand(hook.Command); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	if hook.Timeout < 0 {
		return fmt.Errorf("negative timeout: %d", hook.Timeout)
	}

	if hook.Timeout > config.MaxTimeoutSeconds {
		return fmt.Errorf("timeout too large: %d (max %d seconds)", hook.Timeout, config.MaxTimeoutSeconds)
	}

	if _, err := ParseFailPolicy(hook.FailPolicy); err != nil {
		return err
	}

	return nil
}
